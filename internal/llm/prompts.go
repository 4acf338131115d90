package llm

import "fmt"

const answerSystemPrompt = `You are a financial analyst assistant. Answer the question using ONLY the
provided document excerpts. Cite the excerpts you rely on as [Source N].
If the excerpts do not contain the answer, say so explicitly. Show the
inputs of any ratio or growth calculation before the result.`

// AnswerPrompt assembles the final generation prompt from the retrieved
// context, optional conversation history and the user question.
func AnswerPrompt(question, documentContext, conversationContext string) string {
	if conversationContext != "" {
		return fmt.Sprintf("%s\n\n%s\nDocument excerpts:\n%s\n\nQuestion: %s",
			answerSystemPrompt, conversationContext, documentContext, question)
	}
	return fmt.Sprintf("%s\n\nDocument excerpts:\n%s\n\nQuestion: %s",
		answerSystemPrompt, documentContext, question)
}

// ExpansionPrompt asks for reworded variants of a query to widen retrieval.
func ExpansionPrompt(query string, variants int) string {
	return fmt.Sprintf(`Rewrite the following financial question as %d alternative search queries
that use different wording or financial terminology but keep the same
meaning. Return one query per line with no numbering or commentary.

Question: %s`, variants, query)
}

// DecomposePrompt splits a multi-part question into standalone sub-questions.
func DecomposePrompt(query string) string {
	return fmt.Sprintf(`Split the following question into its independent sub-questions. Each
sub-question must be answerable on its own. Return one sub-question per
line with no numbering or commentary.

Question: %s`, query)
}

// CompressionPrompt asks for the sentences of a chunk relevant to the query.
// The sentinel reply NOT_RELEVANT marks a chunk with nothing to contribute.
func CompressionPrompt(query, chunk string) string {
	return fmt.Sprintf(`Extract from the document chunk only the sentences relevant to answering
the query. Preserve the exact wording and order of the extracted text. If
nothing in the chunk is relevant, reply with exactly NOT_RELEVANT.

Query: %s

Document chunk:
%s`, query, chunk)
}
