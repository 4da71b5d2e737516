package werewolf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestOracleBudgetClampedToLead(t *testing.T) {
	tm := Timing{
		AutomatedLead:    15 * time.Second,
		OracleTimeout:    20 * time.Second,
		OracleRetries:    2,
		OracleRetryDelay: time.Second,
	}.withDefaults()
	assert.Equal(t, 2, tm.OracleRetries)
	assert.Equal(t, 3750*time.Millisecond, tm.OracleTimeout)

	tm = Timing{
		AutomatedLead:    time.Second,
		OracleTimeout:    time.Minute,
		OracleRetries:    3,
		OracleRetryDelay: time.Second,
	}.withDefaults()
	assert.Zero(t, tm.OracleRetries, "backoff alone is longer than the lead")
	assert.Equal(t, time.Second, tm.OracleTimeout)

	tm = Timing{OracleTimeout: time.Minute}.withDefaults()
	assert.Equal(t, time.Minute, tm.OracleTimeout, "no lead, nothing to fit")

	d := DefaultTiming()
	assert.Equal(t, d.OracleTimeout, d.withDefaults().OracleTimeout, "defaults already fit")
}

// Property: with a lead set, every attempt plus the worst-case backoff
// between them ends inside the lead.
func TestOracleBudgetFitsLeadProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tm := Timing{
			AutomatedLead:    time.Duration(rapid.Int64Range(1, int64(time.Minute)).Draw(t, "lead")),
			OracleTimeout:    time.Duration(rapid.Int64Range(1, int64(time.Minute)).Draw(t, "timeout")),
			OracleRetries:    rapid.IntRange(0, 5).Draw(t, "retries"),
			OracleRetryDelay: time.Duration(rapid.Int64Range(1, int64(5*time.Second)).Draw(t, "delay")),
		}.withDefaults()

		total := tm.OracleTimeout*time.Duration(tm.OracleRetries+1) + tm.retryWait()
		if total > tm.AutomatedLead {
			t.Fatalf("budget %v exceeds lead %v (%+v)", total, tm.AutomatedLead, tm)
		}
		if tm.OracleTimeout <= 0 {
			t.Fatalf("oracle timeout %v", tm.OracleTimeout)
		}
	})
}
