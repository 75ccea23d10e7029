package relay

import (
	"testing"
	"time"
)

func TestNextCronDurationDaily(t *testing.T) {
	d := nextCronDuration("0 9 * * *")
	if d <= 0 || d > 24*time.Hour {
		t.Errorf("nextCronDuration = %v, want within 24h", d)
	}
}

func TestNextCronDurationInvalid(t *testing.T) {
	if d := nextCronDuration("not a cron expr"); d != 0 {
		t.Errorf("nextCronDuration = %v, want 0 for invalid expression", d)
	}
}

func TestNextCronDurationEveryMinute(t *testing.T) {
	d := nextCronDuration("* * * * *")
	if d <= 0 || d > time.Minute {
		t.Errorf("nextCronDuration = %v, want within a minute", d)
	}
}
