package app

import (
	"encoding/json"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Dispatcher routes committed events to their audience.
// Delivery is a non-blocking TrySend per recipient, so a slow member never
// holds up the others; full buffers are handed to the Policy.
type Dispatcher struct {
	Registry *Registry
	Policy   Policy
	Metrics  *metrics.Metrics
}

func NewDispatcher(reg *Registry, policy Policy, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{Registry: reg, Policy: policy, Metrics: m}
}

func (d *Dispatcher) Publish(evt core.Event) core.PublishResult {
	frame, err := json.Marshal(core.Envelope{Type: evt.Type, Payload: evt.Payload})
	if err != nil {
		log.Error().Err(err).Str("module", "app.dispatcher").Str("type", string(evt.Type)).Msg("marshal event")
		return core.PublishResult{}
	}

	res := core.PublishResult{}
	for _, snap := range d.audience(evt) {
		if err := snap.Session.Signal().TrySend(frame); err != nil {
			res.Dropped = append(res.Dropped, snap.SID)
			continue
		}
		res.SendTo++
	}
	d.Metrics.ObservePublish(string(evt.Type), res.SendTo, len(res.Dropped))
	log.Debug().Str("module", "app.dispatcher").Str("type", string(evt.Type)).Str("room", string(evt.Room)).
		Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")

	d.onDropped(evt, res.Dropped)
	return res
}

func (d *Dispatcher) audience(evt core.Event) []regSnap {
	switch evt.Audience {
	case core.AudienceRoom:
		return d.Registry.MembersOfRoom(evt.Room)
	case core.AudienceRoomOthers:
		members := d.Registry.MembersOfRoom(evt.Room)
		out := members[:0]
		for _, m := range members {
			if m.SID != evt.From {
				out = append(out, m)
			}
		}
		return out
	case core.AudienceAll:
		return d.Registry.All()
	case core.AudienceSession:
		if sess, ok := d.Registry.GetSession(evt.From); ok {
			return []regSnap{{SID: evt.From, Session: sess}}
		}
		return nil
	default:
		log.Warn().Str("module", "app.dispatcher").Int("audience", int(evt.Audience)).Msg("unknown audience")
		return nil
	}
}

func (d *Dispatcher) onDropped(evt core.Event, dropped []core.SessionID) {
	if d.Policy == nil {
		return
	}
	for _, sid := range dropped {
		switch d.Policy.OnBackPressure(sid, evt) {
		case KickMember:
			log.Warn().Str("module", "app.dispatcher").Str("sid", string(sid)).Msg("kicking slow member")
			d.Registry.Kick(sid)
		case DropFrame:
			log.Debug().Str("module", "app.dispatcher").Str("sid", string(sid)).Msg("frame dropped")
		}
	}
}
