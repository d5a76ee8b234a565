package manager

import "github.com/rs/zerolog"

// LogPublisher writes cache events to a structured logger. Eviction and
// load are operational events, not errors, so everything logs at info.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(e Event) {
	ev := p.log.Info().Str("event", e.Name)
	if e.ModelID != "" {
		ev = ev.Str("model", e.ModelID)
	}
	if len(e.Fields) > 0 {
		ev = ev.Fields(e.Fields)
	}
	ev.Msg("cache event")
}
