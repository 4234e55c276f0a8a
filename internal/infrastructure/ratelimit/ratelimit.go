// Package ratelimit holds the per-client request throttles used by the
// gateway. Every rule is checked; the request is rejected when any rule is
// exhausted.
package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

type Rule struct {
	Name  string
	Limit int
	TTL   time.Duration
}

type Decision struct {
	Allowed    bool
	Rule       string
	RetryAfter time.Duration
}

func validateRules(rules []Rule) error {
	if len(rules) == 0 {
		return errors.New("at least one throttle rule is required")
	}
	for _, rule := range rules {
		if rule.Name == "" {
			return errors.New("throttle rule name is required")
		}
		if rule.Limit <= 0 || rule.TTL <= 0 {
			return fmt.Errorf("throttle rule %q needs a positive limit and ttl", rule.Name)
		}
	}
	return nil
}
