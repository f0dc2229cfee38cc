package agent

const (
	planSystemPrompt = "You are a precise planning assistant for document search."

	planPromptTemplate = `You are an intelligent assistant. Analyze the following question and decide:

1. Does this question require searching the document corpus? (Answer with 'YES' or 'NO')
2. If YES, which keywords matter for the search?
3. If NO, can you answer the question directly?

Question: %s

Answer in the format:
SEARCH: YES/NO
KEYWORDS: [if SEARCH=YES, list the important terms]
DIRECT_ANSWER: [if SEARCH=NO, give a short answer]`

	generateSystemPrompt = "You are a precise, fact-based assistant. Answer only with verified information."

	generateWithContextTemplate = `Based on the following documents, answer the question precisely and accurately.
Cite the relevant passages with [1], [2], etc.

Documents:
%s

Question: %s

Answer:`

	generateDirectTemplate = `Answer the following question precisely:

Question: %s

Answer:`

	auditSystemPrompt = "You are a precise fact checker. Respond only with a number between 0.0 and 1.0."

	auditPromptTemplate = `Check whether the following answer is consistent with the provided documents.
Rate the agreement on a scale from 0.0 to 1.0.

Documents:
%s

Answer:
%s

Rating (number between 0.0 and 1.0 only):`

	fallbackAnswer = "Sorry, I could not generate an answer."
)
