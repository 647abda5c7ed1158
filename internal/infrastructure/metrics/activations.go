package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		verifyTotal,
		claimsTotal,
		recordsCreatedTotal,
		generationRetriesTotal,
		deferredClaimsTotal,
	)
}

var (
	verifyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activation_verify_total",
			Help: "Code verifications by result (claimable/not_claimable/bad_format).",
		},
		[]string{"result"},
	)

	claimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activation_claims_total",
			Help: "Claim attempts by result (claimed/noop/lost_race/not_claimable/error).",
		},
		[]string{"result"},
	)

	recordsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "activation_records_created_total",
			Help: "Activation records inserted by the registry.",
		},
	)

	generationRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "activation_code_generation_retries_total",
			Help: "Code generations discarded because the code was already taken.",
		},
	)

	deferredClaimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activation_deferred_claims_total",
			Help: "Deferred claim stages and completions by stage/result.",
		},
		[]string{"stage"},
	)
)

func IncVerify(result string) {
	verifyTotal.WithLabelValues(norm(result)).Inc()
}

func IncClaim(result string) {
	claimsTotal.WithLabelValues(norm(result)).Inc()
}

func IncRecordsCreated(n int) {
	recordsCreatedTotal.Add(float64(n))
}

func IncGenerationRetry() {
	generationRetriesTotal.Inc()
}

func IncDeferred(stage string) {
	deferredClaimsTotal.WithLabelValues(norm(stage)).Inc()
}
