package app

import (
	"sort"

	"watchcode-go/errcode"
	"watchcode-go/telemetry"
	"watchcode-go/x/conv"
)

var (
	topicState   = telemetry.Topic{"app", "state"}
	topicStats   = telemetry.Topic{"app", "stats"}
	topicPercent = telemetry.Topic{"power", "percent"}
	topicBattery = telemetry.Topic{"power", "battery"}
)

func faultTopic(c errcode.Code) telemetry.Topic {
	return telemetry.Topic{"fault", string(c)}
}

// StateReport is retained on app/state.
type StateReport struct {
	State     State
	Iteration uint32
}

// BatteryStatus is retained on power/battery whenever the battery screen
// reads it.
type BatteryStatus struct {
	MilliV   uint16
	Percent  uint8
	Charging bool
}

// Fault is published on fault/<code>, not retained.
type Fault struct {
	Code      errcode.Code
	Detail    string
	Iteration uint32
}

// Stats are cumulative loop counters.
type Stats struct {
	Iterations  uint32
	Transitions uint32
	Faults      map[errcode.Code]uint32
}

func (s Stats) clone() Stats {
	out := s
	out.Faults = make(map[errcode.Code]uint32, len(s.Faults))
	for k, v := range s.Faults {
		out.Faults[k] = v
	}
	return out
}

// Describe renders a message published by App as one console line. It avoids
// fmt so firmware can use it.
func Describe(m *telemetry.Message) string {
	b := append([]byte(m.Topic.String()), ' ')
	switch p := m.Payload.(type) {
	case StateReport:
		b = append(b, p.State.String()...)
		b = append(b, " iter="...)
		b = conv.AppendUint(b, uint64(p.Iteration))
	case uint8:
		b = conv.AppendUint(b, uint64(p))
		b = append(b, '%')
	case BatteryStatus:
		b = conv.AppendUint(b, uint64(p.MilliV))
		b = append(b, "mV "...)
		b = conv.AppendUint(b, uint64(p.Percent))
		b = append(b, '%')
		if p.Charging {
			b = append(b, " charging"...)
		}
	case Fault:
		b = append(b, p.Detail...)
		b = append(b, " iter="...)
		b = conv.AppendUint(b, uint64(p.Iteration))
	case Stats:
		b = append(b, "iter="...)
		b = conv.AppendUint(b, uint64(p.Iterations))
		b = append(b, " transitions="...)
		b = conv.AppendUint(b, uint64(p.Transitions))
		codes := make([]string, 0, len(p.Faults))
		for c := range p.Faults {
			codes = append(codes, string(c))
		}
		sort.Strings(codes)
		for _, c := range codes {
			b = append(b, ' ')
			b = append(b, c...)
			b = append(b, '=')
			b = conv.AppendUint(b, uint64(p.Faults[errcode.Code(c)]))
		}
	case nil:
		b = append(b, "(cleared)"...)
	default:
		b = append(b, '?')
	}
	return string(b)
}
