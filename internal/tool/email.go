package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nidhogg/pipboy/internal/provider"
)

// sensitiveWords blocks outgoing mail that appears to carry credentials
// or payment details.
var sensitiveWords = []string{"密码", "银行卡", "身份证", "信用卡", "cvv"}

type emailArgs struct {
	To      string `json:"to" validate:"required,email" jsonschema:"description=Recipient address"`
	Subject string `json:"subject" validate:"required,max=100" jsonschema:"description=Subject line; at most 100 characters"`
	Body    string `json:"body" validate:"required,max=50000" jsonschema:"description=Plain text body"`
	CC      string `json:"cc,omitempty" validate:"omitempty,email" jsonschema:"description=Optional carbon copy address"`
}

func emailTool() (provider.Tool, Handler) {
	def := provider.Tool{
		Type: "function",
		Function: provider.ToolFunction{
			Name:        "send_email",
			Description: "Send an email to a recipient. The send is simulated and returns a delivery receipt.",
			Parameters:  schemaFor(&emailArgs{}),
		},
	}
	handler := func(ctx context.Context, args string) (string, error) {
		var a emailArgs
		if err := decodeArgs(args, &a); err != nil {
			return fail(err.Error())
		}

		lower := strings.ToLower(a.Body)
		for _, word := range sensitiveWords {
			if strings.Contains(lower, word) {
				return fail(fmt.Sprintf("email body contains sensitive content: %s", word))
			}
		}

		return ok(map[string]interface{}{
			"email_id": uuid.New().String(),
			"sent_at":  timeNow().Format("2006-01-02 15:04:05"),
			"to":       a.To,
			"subject":  a.Subject,
		}, fmt.Sprintf("email sent to %s", a.To))
	}
	return def, handler
}
