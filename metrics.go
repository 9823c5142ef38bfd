package authcore

import (
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
)

// MetricID identifies a counter in the in-process metrics system.
type MetricID uint8

const (
	// MetricOTPRequested counts accepted OTP issuances.
	MetricOTPRequested MetricID = iota
	// MetricOTPCooldownHit counts issuances refused by the cooldown flag.
	MetricOTPCooldownHit
	// MetricOTPSpamLocked counts issuances refused by the spam lock.
	MetricOTPSpamLocked
	// MetricOTPVerifySuccess is an exported constant or variable used by the authentication core.
	MetricOTPVerifySuccess
	// MetricOTPVerifyFailure is an exported constant or variable used by the authentication core.
	MetricOTPVerifyFailure
	// MetricOTPAccountLocked counts lockouts triggered by wrong codes.
	MetricOTPAccountLocked
	// MetricRegisterSuccess is an exported constant or variable used by the authentication core.
	MetricRegisterSuccess
	// MetricLoginSuccess is an exported constant or variable used by the authentication core.
	MetricLoginSuccess
	// MetricLoginFailure is an exported constant or variable used by the authentication core.
	MetricLoginFailure
	// MetricRefreshSuccess is an exported constant or variable used by the authentication core.
	MetricRefreshSuccess
	// MetricRefreshFailure is an exported constant or variable used by the authentication core.
	MetricRefreshFailure
	// MetricPasswordResetSuccess is an exported constant or variable used by the authentication core.
	MetricPasswordResetSuccess
	// MetricMailDispatchFailure counts OTP mails that could not be sent.
	MetricMailDispatchFailure

	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricOTPRequested:         "authcore_otp_requested_total",
	MetricOTPCooldownHit:       "authcore_otp_cooldown_hits_total",
	MetricOTPSpamLocked:        "authcore_otp_spam_locked_total",
	MetricOTPVerifySuccess:     "authcore_otp_verify_success_total",
	MetricOTPVerifyFailure:     "authcore_otp_verify_failure_total",
	MetricOTPAccountLocked:     "authcore_otp_account_locked_total",
	MetricRegisterSuccess:      "authcore_register_success_total",
	MetricLoginSuccess:         "authcore_login_success_total",
	MetricLoginFailure:         "authcore_login_failure_total",
	MetricRefreshSuccess:       "authcore_refresh_success_total",
	MetricRefreshFailure:       "authcore_refresh_failure_total",
	MetricPasswordResetSuccess: "authcore_password_reset_success_total",
	MetricMailDispatchFailure:  "authcore_mail_dispatch_failure_total",
}

// Metrics holds atomic counters. When disabled, every operation is a
// no-op so the hot path carries no cost.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]atomic.Uint64
}

// NewMetrics creates a [Metrics] instance.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc increments a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Snapshot returns a point-in-time copy of all counters.
func (m *Metrics) Snapshot() map[MetricID]uint64 {
	out := make(map[MetricID]uint64, metricIDCount)
	if m == nil || !m.enabled {
		return out
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		out[id] = m.counters[id].Load()
	}
	return out
}

// RenderPrometheus writes the counters in Prometheus text exposition
// format. The httpapi layer serves this on /metrics.
func (m *Metrics) RenderPrometheus() string {
	snapshot := m.Snapshot()
	if len(snapshot) == 0 {
		return ""
	}

	ids := make([]int, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)

	var b strings.Builder
	for _, id := range ids {
		name := metricNames[id]
		b.WriteString("# TYPE " + name + " counter\n")
		b.WriteString(name + " " + strconv.FormatUint(snapshot[MetricID(id)], 10) + "\n")
	}
	return b.String()
}
