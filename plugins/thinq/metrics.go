package thinq

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector exports the cached state of every discovered device. It
// never calls the cloud API; scrapes read what the last poll stored.
type MetricsCollector struct {
	devices devices

	success       prometheus.Gauge
	available     *prometheus.GaugeVec
	onOff         *prometheus.GaugeVec
	operationMode *prometheus.GaugeVec
	currentTemp   *prometheus.GaugeVec
	targetTemp    *prometheus.GaugeVec
	lastUpdate    *prometheus.GaugeVec
}

func NewMetricsCollector(devices devices) *MetricsCollector {
	labels := []string{"device_id", "device_name"}
	return &MetricsCollector{
		devices: devices,
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thinqhome_thinq_scrape_success",
			Help: "Whether every device polled successfully (1=ok, 0=error)",
		}),
		available: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "thinqhome_thinq_device_available",
			Help: "Whether the last poll of the device succeeded (1=yes, 0=no)",
		}, labels),
		onOff: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "thinqhome_thinq_on_off",
			Help: "Power state of the unit (1=on, 0=off)",
		}, labels),
		operationMode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "thinqhome_thinq_operation_mode",
			Help: "Operation mode reported by the unit (1=active)",
		}, []string{"device_id", "device_name", "mode"}),
		currentTemp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "thinqhome_thinq_current_temperature",
			Help: "Room temperature in the unit's configured scale",
		}, []string{"device_id", "device_name", "unit"}),
		targetTemp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "thinqhome_thinq_target_temperature",
			Help: "Target temperature in the unit's configured scale",
		}, []string{"device_id", "device_name", "unit"}),
		lastUpdate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "thinqhome_thinq_last_update_timestamp_seconds",
			Help: "Unix time of the last successful poll",
		}, labels),
	}
}

func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	c.success.Describe(ch)
	c.available.Describe(ch)
	c.onOff.Describe(ch)
	c.operationMode.Describe(ch)
	c.currentTemp.Describe(ch)
	c.targetTemp.Describe(ch)
	c.lastUpdate.Describe(ch)
}

func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	c.available.Reset()
	c.onOff.Reset()
	c.operationMode.Reset()
	c.currentTemp.Reset()
	c.targetTemp.Reset()
	c.lastUpdate.Reset()

	success := 1.0
	for _, d := range c.devices.Registry().All() {
		labels := prometheus.Labels{"device_id": d.UniqueID(), "device_name": d.Name()}
		if !d.Available() {
			success = 0
			c.available.With(labels).Set(0)
			continue
		}
		c.available.With(labels).Set(1)

		state := d.State()
		c.onOff.With(labels).Set(boolToFloat(state.IsOn))
		if state.OperationMode != "" {
			c.operationMode.With(prometheus.Labels{
				"device_id":   d.UniqueID(),
				"device_name": d.Name(),
				"mode":        state.OperationMode,
			}).Set(1)
		}

		tempLabels := prometheus.Labels{
			"device_id":   d.UniqueID(),
			"device_name": d.Name(),
			"unit":        string(d.Device().TemperatureUnit()),
		}
		if state.CurrentTemp != nil {
			c.currentTemp.With(tempLabels).Set(*state.CurrentTemp)
		}
		if state.TargetTemp != nil {
			c.targetTemp.With(tempLabels).Set(*state.TargetTemp)
		}
		if ts := d.LastUpdate(); !ts.IsZero() {
			c.lastUpdate.With(labels).Set(float64(ts.Unix()))
		}
	}
	c.success.Set(success)

	c.success.Collect(ch)
	c.available.Collect(ch)
	c.onOff.Collect(ch)
	c.operationMode.Collect(ch)
	c.currentTemp.Collect(ch)
	c.targetTemp.Collect(ch)
	c.lastUpdate.Collect(ch)
}

func boolToFloat(value bool) float64 {
	if value {
		return 1
	}
	return 0
}
