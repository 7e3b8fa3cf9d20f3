package config

import "time"

// QueueConfig contains settings shared by the queue controller and the eligibility picker.
type QueueConfig struct {
	// ParallelPREnabled lets pull request jobs run beside other jobs of the same project.
	ParallelPREnabled bool `env:"QUEUE_PARALLEL_PR_ENABLED" envDefault:"false"`

	// MaxClaimAttempts bounds how many candidates one peek tries after losing claim races.
	MaxClaimAttempts int `env:"QUEUE_MAX_CLAIM_ATTEMPTS" envDefault:"5"`

	// WornOutAfter is the minimum age of a previous start before a pending job is
	// considered worn out. Zero means any previously started pending job.
	WornOutAfter time.Duration `env:"QUEUE_WORN_OUT_AFTER" envDefault:"0s"`

	// WornOutBatchSize caps how many worn-out rows are read per pass.
	WornOutBatchSize int `env:"QUEUE_WORN_OUT_BATCH_SIZE" envDefault:"500"`
}

// Sanitize applies guardrails to queue configuration values.
func (q *QueueConfig) Sanitize() {
	if q.MaxClaimAttempts < 1 {
		q.MaxClaimAttempts = 1
	}
	if q.WornOutAfter < 0 {
		q.WornOutAfter = 0
	}
	if q.WornOutBatchSize < 1 {
		q.WornOutBatchSize = 1
	}
	if q.WornOutBatchSize > 10000 {
		q.WornOutBatchSize = 10000
	}
}
