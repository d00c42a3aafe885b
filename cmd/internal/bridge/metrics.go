package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	provisionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crabba_bridge_provision_total",
		Help: "Provisioning attempts by outcome.",
	}, []string{"outcome"})

	exchangeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crabba_bridge_token_exchange_total",
		Help: "Token exchange attempts by outcome.",
	}, []string{"outcome"})

	healTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crabba_bridge_identity_heal_total",
		Help: "Stale or missing identities re-provisioned during token exchange.",
	})
)

const (
	outcomeCreated         = "created"
	outcomeAlreadyExisted  = "already_existed"
	outcomeInvalidUsername = "invalid_username"
	outcomeUsernameTaken   = "username_taken"
	outcomeFailed          = "failed"

	outcomeSuccess      = "success"
	outcomeNotFound     = "not_found"
	outcomeAuthRejected = "auth_rejected"
)
