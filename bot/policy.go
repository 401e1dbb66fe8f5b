// Package bot holds the decision logic for automated replies.
package bot

import (
	"fmt"
	"strings"
)

// TriggerPolicy decides whether a human message warrants an automated
// reply. The predicate must be pure; it runs on the submission path.
type TriggerPolicy func(content string) bool

// ContainsQuestion accepts any content holding a question marker.
// A deliberate placeholder heuristic: replace the function, not the pipeline.
func ContainsQuestion(content string) bool {
	return strings.Contains(content, "?")
}

// ReplyRequest is one in-flight automated-reply task. Each qualifying
// human message yields exactly one request; requests share no state.
type ReplyRequest struct {
	ID      string
	Content string
}

// ErrorReply converts a generation failure into visible degraded content,
// so the chat history stays a complete record of attempts.
func ErrorReply(err error) string {
	return fmt.Sprintf("(LLM error) %v", err)
}
