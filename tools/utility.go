package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

const currentTimeLayout = "Monday, January 02, 2006 at 03:04 PM"

// Clock tells the model the current date and time.
type Clock struct {
	now func() time.Time
}

// NewClock uses now, or time.Now when now is nil.
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

func (h *Clock) Handle(ctx context.Context, call Call) (string, error) {
	if call.Name != "getCurrentTime" {
		return NotHandled(call.Name), nil
	}

	args, err := decodeArgs[struct {
		Timezone string `json:"timezone"`
	}](call.Input)
	if err != nil {
		return "", err
	}

	loc := time.UTC
	if args.Timezone != "" {
		loc, err = time.LoadLocation(args.Timezone)
		if err != nil {
			return "", invalid(fmt.Sprintf("%q is not a time zone I know.", args.Timezone), err)
		}
	}
	t := h.now().In(loc)
	return fmt.Sprintf("The current time is %s (%s).", t.Format(currentTimeLayout), loc.String()), nil
}

func (h *Clock) Tools() []Tool {
	return Route(h, Def{
		Name:        "getCurrentTime",
		Title:       "Get Current Time",
		Description: "Get the current date and time, for example to plan meals for today or check expiry dates.",
		Input: object(map[string]*jsonschema.Schema{
			"timezone": str("Optional. IANA time zone such as America/New_York. Defaults to UTC."),
		}),
	})
}
