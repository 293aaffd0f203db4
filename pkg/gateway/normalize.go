package gateway

import (
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/urmzd/deconz2z2m/pkg/device"
	"github.com/urmzd/deconz2z2m/pkg/network"
)

// parseNetworkParams maps a deCONZ config object onto network.Params.
// Missing or malformed fields stay unset.
func parseNetworkParams(cfg gjson.Result) network.Params {
	var p network.Params

	if ch := cfg.Get("zigbeechannel"); ch.Exists() {
		switch ch.Type {
		case gjson.Number:
			p.Channel = int(ch.Int())
		case gjson.String:
			p.Channel = int(gjson.Parse(ch.Str).Int())
		}
	}

	p.PanID = hexField(cfg.Get("panid"), network.PanIDLength)
	p.ExtPanID = hexField(cfg.Get("extpanid"), network.ExtPanIDLength)
	p.NetworkKey = hexField(cfg.Get("networkkey"), network.NetworkKeyLength)
	p.GatewayName = cfg.Get("name").String()
	p.GatewayVersion = cfg.Get("swversion").String()
	if p.GatewayVersion == "" {
		p.GatewayVersion = cfg.Get("version").String()
	}

	log.Debug().
		Int("channel", p.Channel).
		Bool("pan_id", p.HasPanID()).
		Bool("ext_pan_id", p.HasExtPanID()).
		Bool("network_key", p.HasNetworkKey()).
		Msg("Network parameters read")
	return p
}

// hexField accepts either a JSON number (decimal) or a hex string.
func hexField(v gjson.Result, length int) string {
	switch v.Type {
	case gjson.Number:
		return network.ParseDecimalField(v.Raw, length)
	case gjson.String:
		return network.ParseHexField(v.Str, length)
	}
	return ""
}

// parseCollection turns a deCONZ id → object map into records, keeping
// the document order of the ids.
func parseCollection(kind device.Kind, coll gjson.Result) []device.Record {
	records := make([]device.Record, 0)
	if !coll.IsObject() {
		log.Warn().Str("type", string(kind)).Msg("Device collection is not an object")
		return records
	}

	coll.ForEach(func(key, value gjson.Result) bool {
		if !value.IsObject() {
			log.Debug().Str("id", key.String()).Msg("Skipping malformed device entry")
			return true
		}

		f := device.Fields{
			Name:         value.Get("name").String(),
			Model:        value.Get("modelid").String(),
			Manufacturer: value.Get("manufacturername").String(),
			UniqueID:     value.Get("uniqueid").String(),
		}
		if state := value.Get("state"); state.IsObject() {
			if m, ok := state.Value().(map[string]any); ok {
				f.State = m
			}
		}

		rec, err := device.NewRecord(kind, key.String(), f)
		if err != nil {
			log.Debug().Err(err).Str("id", key.String()).Msg("Skipping device entry")
			return true
		}
		records = append(records, rec)
		return true
	})
	return records
}
