package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/nidhogg/pipboy/internal/provider"
)

// timeNow is swapped out in tests.
var timeNow = time.Now

// cityZones maps common city aliases to IANA timezone names.
var cityZones = map[string]string{
	"北京":  "Asia/Shanghai",
	"上海":  "Asia/Shanghai",
	"东京":  "Asia/Tokyo",
	"纽约":  "America/New_York",
	"伦敦":  "Europe/London",
	"巴黎":  "Europe/Paris",
	"悉尼":  "Australia/Sydney",
	"洛杉矶": "America/Los_Angeles",
}

var weekdayNames = [...]string{"星期日", "星期一", "星期二", "星期三", "星期四", "星期五", "星期六"}

type timeArgs struct {
	Timezone string `json:"timezone,omitempty" validate:"omitempty,max=50" jsonschema:"description=IANA timezone name or a known city alias; defaults to Asia/Shanghai"`
	Format   string `json:"format,omitempty" validate:"omitempty,oneof=full date_only time_only" jsonschema:"enum=full,enum=date_only,enum=time_only,description=Output layout; defaults to full"`
}

func currentTimeTool() (provider.Tool, Handler) {
	def := provider.Tool{
		Type: "function",
		Function: provider.ToolFunction{
			Name:        "get_current_time",
			Description: "Get the current date and time in a given timezone.",
			Parameters:  schemaFor(&timeArgs{}),
		},
	}
	handler := func(ctx context.Context, args string) (string, error) {
		var a timeArgs
		if err := decodeArgs(args, &a); err != nil {
			return fail(err.Error())
		}

		zone := a.Timezone
		if zone == "" {
			zone = "Asia/Shanghai"
		}
		if iana, ok := cityZones[zone]; ok {
			zone = iana
		}
		loc, err := time.LoadLocation(zone)
		if err != nil {
			return fail(fmt.Sprintf("unknown timezone: %s", a.Timezone))
		}

		now := timeNow().In(loc)
		layout := "2006年01月02日 15:04:05"
		switch a.Format {
		case "date_only":
			layout = "2006年01月02日"
		case "time_only":
			layout = "15:04:05"
		}

		return ok(map[string]interface{}{
			"datetime":  now.Format(layout),
			"timezone":  zone,
			"timestamp": now.Unix(),
			"weekday":   weekdayNames[now.Weekday()],
		}, "")
	}
	return def, handler
}
