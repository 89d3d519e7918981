// Package metrics defines and registers the custom Prometheus metrics for the
// console session layer and the development auth stub. It is the single
// source of truth for metric names, labels, and help strings.
//
// All metrics register with the default registry on package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace     = "console"
	stubNamespace = "authstub"
)

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionLoginsTotal counts login calls by the provider that decided them.
// Labels:
//   - provider: "local" or "remote"
//   - outcome: "ok", "invalid_credentials", "transport_error", "malformed_response"
var SessionLoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_logins_total",
		Help:      "Total number of login attempts, by deciding provider and outcome.",
	},
	[]string{"provider", "outcome"},
)

// SessionRestoresTotal counts silent-restore attempts.
// Label:
//   - outcome: "restored", "empty" (backend answered without a token) or "failed"
var SessionRestoresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_restores_total",
		Help:      "Total number of silent session restore attempts, by outcome.",
	},
	[]string{"outcome"},
)

// SessionLogoutsTotal counts logouts.
// Label:
//   - notified: "true" when the backend acknowledged, "false" otherwise
var SessionLogoutsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_logouts_total",
		Help:      "Total number of logouts, by whether the backend was notified.",
	},
	[]string{"notified"},
)

// ── Auth stub metrics ─────────────────────────────────────────────────────────

// TokensIssuedTotal counts access tokens minted by the auth stub.
// Label:
//   - grant: "login" or "refresh"
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: stubNamespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of access tokens issued, by grant type.",
	},
	[]string{"grant"},
)
