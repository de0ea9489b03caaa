package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/hearthlabs/hearth-core/internal/monitor"
	"github.com/hearthlabs/hearth-core/internal/value"
)

var _ monitor.TelemetryRecorder = (*Client)(nil)

// WriteCellUpdate records one sensor reading observed by a running monitor.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Numeric and boolean readings are stored as typed fields so they can be
// graphed and aggregated; every other kind is stored as its string form.
//
// Parameters:
//   - device: Device identifier (e.g., "thermo-01")
//   - capability: The input channel the reading arrived on (e.g., "temperature")
//   - v: The reading
//
// Example:
//
//	client.WriteCellUpdate("thermo-01", "temperature", value.Num(21.5))
func (c *Client) WriteCellUpdate(device, capability string, v value.Value) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]interface{}{}
	switch v.Kind() {
	case value.KindNum:
		n, _ := v.AsNum()
		fields["value"] = n
	case value.KindBool:
		b, _ := v.AsBool()
		fields["state"] = b
	default:
		fields["raw"] = v.String()
	}

	point := write.NewPoint(
		"cell_updates",
		map[string]string{
			"device":     device,
			"capability": capability,
			"kind":       string(v.Kind()),
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// RecordCellUpdate implements the telemetry hook consumed by the monitor
// engine.
func (c *Client) RecordCellUpdate(device, capability string, v value.Value) {
	c.WriteCellUpdate(device, capability, v)
}

// RecordTriggerFiring implements the telemetry hook consumed by the monitor
// engine.
func (c *Client) RecordTriggerFiring(firing *monitor.TriggerFiring) {
	c.WriteTriggerFiring(firing)
}

// WriteTriggerFiring records one rule firing: which monitor, which rule, and
// the latency between the sensor event and the reaction.
//
// Parameters:
//   - firing: The firing record produced by the engine
func (c *Client) WriteTriggerFiring(firing *monitor.TriggerFiring) {
	if !c.IsConnected() || firing == nil {
		return
	}

	point := write.NewPoint(
		"trigger_firings",
		map[string]string{
			"monitor": firing.Monitor,
		},
		map[string]interface{}{
			"trigger_index":      firing.TriggerIndex,
			"statements_total":   firing.StatementsTotal,
			"statements_failed":  firing.StatementsFailed,
			"reaction_latency_s": firing.FiredAt.Sub(firing.EventAt).Seconds(),
		},
		firing.FiredAt,
	)

	c.writeAPI.WritePoint(point)
}

