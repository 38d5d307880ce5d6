package booking

import (
	"strings"
	"time"
)

// Confirmation is the payload produced when a session completes.
type Confirmation struct {
	Reference string    `json:"reference"`
	Kind      Kind      `json:"kind"`
	Fields    []Field   `json:"fields"`
	CreatedAt time.Time `json:"created_at"`
}

// Value returns the validated value of the first field of kind k.
func (c *Confirmation) Value(k FieldKind) string {
	for _, f := range c.Fields {
		if f.Kind == k {
			return f.Value
		}
	}
	return ""
}

// Values maps field kinds to validated values.
func (c *Confirmation) Values() map[string]string {
	out := make(map[string]string, len(c.Fields))
	for _, f := range c.Fields {
		out[string(f.Kind)] = f.Value
	}
	return out
}

// Render formats the confirmation as a chat message.
func (c *Confirmation) Render() string {
	var b strings.Builder
	if c.Kind == Callback {
		b.WriteString("🎉 **Callback Booked Successfully!**\n\n📞 **Details:**\n")
	} else {
		b.WriteString("🎉 **Appointment Booked Successfully!**\n\n📅 **Details:**\n")
	}
	b.WriteString("• **Reference:** " + c.Reference + "\n")
	for _, f := range c.Fields {
		b.WriteString("• **" + f.Kind.Label() + ":** " + f.Value + "\n")
	}
	if c.Kind == Callback {
		b.WriteString("\n📱 You'll receive a call within 24-48 hours.")
	} else {
		b.WriteString("\n⏰ Please keep your reference number for any changes.")
	}
	return b.String()
}
