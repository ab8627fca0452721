package domain

import "fmt"

type Flag string

const (
	FlagHealth   Flag = "health"
	FlagOverload Flag = "overload"
	FlagDatabase Flag = "database"
	FlagModel    Flag = "model"
)

var AllFlags = []Flag{FlagHealth, FlagOverload, FlagDatabase, FlagModel}

func ParseFlag(name string) (Flag, error) {
	for _, f := range AllFlags {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown flag %q", name)
}

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

type SubmissionOutcome string

const (
	OutcomeSaved    SubmissionOutcome = "saved"
	OutcomeDegraded SubmissionOutcome = "degraded"
	OutcomeRejected SubmissionOutcome = "rejected"
	OutcomeInvalid  SubmissionOutcome = "invalid"
)
