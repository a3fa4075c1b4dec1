package tool

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"

	"github.com/nidhogg/pipboy/internal/provider"
	"github.com/nidhogg/pipboy/internal/store"
)

// maxRows caps how many rows a single query hands back to the model.
const maxRows = 100

// forbiddenSQL rejects anything that could mutate the database or
// smuggle in a second statement. Checked against the uppercased query.
var forbiddenSQL = []*regexp.Regexp{
	regexp.MustCompile(`\bINSERT\b`),
	regexp.MustCompile(`\bUPDATE\b`),
	regexp.MustCompile(`\bDELETE\b`),
	regexp.MustCompile(`\bDROP\b`),
	regexp.MustCompile(`\bCREATE\b`),
	regexp.MustCompile(`\bALTER\b`),
	regexp.MustCompile(`\bTRUNCATE\b`),
	regexp.MustCompile(`\bGRANT\b`),
	regexp.MustCompile(`\bREVOKE\b`),
	regexp.MustCompile(`\bEXEC\b`),
	regexp.MustCompile(`\bEXECUTE\b`),
	regexp.MustCompile(`\b--`),
	regexp.MustCompile(`;.*;`),
}

type sqlArgs struct {
	SQL string `json:"sql" validate:"required" jsonschema:"description=A single SELECT statement"`
}

func databaseTool(st *store.Store) (provider.Tool, Handler) {
	def := provider.Tool{
		Type: "function",
		Function: provider.ToolFunction{
			Name: "execute_sql",
			Description: heredoc.Doc(`
				Run a read-only SQL query against the demo database.
				Tables:
				  users(id, name, email, age, city, created_at)
				  products(id, name, category, price, stock, created_at)
				  orders(id, user_id, product_id, quantity, total_price, order_date, status)
				Only SELECT statements are accepted.
			`),
			Parameters: schemaFor(&sqlArgs{}),
		},
	}
	handler := func(ctx context.Context, args string) (string, error) {
		var a sqlArgs
		if err := decodeArgs(args, &a); err != nil {
			return fail(err.Error())
		}
		if err := checkReadOnly(a.SQL); err != nil {
			return fail(err.Error())
		}

		rows, err := st.Query(ctx, a.SQL)
		if err != nil {
			return fail(fmt.Sprintf("query failed: %v", err))
		}
		if rows == nil {
			rows = []map[string]interface{}{}
		}

		data := map[string]interface{}{}
		if len(rows) > maxRows {
			rows = rows[:maxRows]
			data["truncated"] = true
		}
		data["row_count"] = len(rows)
		data["results"] = rows
		return ok(data, "")
	}
	return def, handler
}

func checkReadOnly(query string) error {
	upper := strings.ToUpper(strings.TrimSpace(query))
	if !strings.HasPrefix(upper, "SELECT") {
		return fmt.Errorf("only SELECT statements are allowed")
	}
	for _, re := range forbiddenSQL {
		if re.MatchString(upper) {
			return fmt.Errorf("statement contains forbidden pattern: %s", re.String())
		}
	}
	return nil
}
