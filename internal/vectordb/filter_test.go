package vectordb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight/finsight/internal/schema"
)

func TestFilterValidate(t *testing.T) {
	assert.NoError(t, Filter{}.Validate())
	assert.NoError(t, Filter{Ticker: "ACM"}.Validate())
	assert.NoError(t, Filter{Ticker: "BRK.B", DocTypes: []string{"balance_sheet", "10k"}}.Validate())

	err := Filter{Ticker: "NOT A TICKER"}.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrInvalidFilter)

	err = Filter{DocTypes: []string{"tweet"}}.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrInvalidFilter)
}

func TestFilterExpr(t *testing.T) {
	assert.Empty(t, Filter{}.Expr())
	assert.Equal(t, `ticker == "ACM"`, Filter{Ticker: "acm"}.Expr())
	assert.Equal(t, `doc_type in ["cash_flow"]`, Filter{DocTypes: []string{"cash_flow"}}.Expr())
	assert.Equal(t,
		`ticker == "ACM" and doc_type in ["income_statement", "balance_sheet"]`,
		Filter{Ticker: "ACM", DocTypes: []string{"income_statement", "balance_sheet"}}.Expr())
}
