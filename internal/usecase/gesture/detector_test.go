package gesture

import (
	"testing"
	"time"

	"adzopay/internal/infra/eventloop"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newDetector() (*Detector, *eventloop.Manual) {
	loop := eventloop.NewManual(epoch)
	return NewDetector(loop, Config{Cooldown: DefaultCooldown, MinDistance: DefaultMinDistance}), loop
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		ev     Event
		intent Intent
		result Result
	}{
		{name: "wheel down", ev: Event{Kind: KindWheel, DeltaY: 3}, intent: IntentAdvance, result: ResultAccepted},
		{name: "wheel up", ev: Event{Kind: KindWheel, DeltaY: -1}, intent: IntentRetreat, result: ResultAccepted},
		{name: "wheel zero", ev: Event{Kind: KindWheel}, intent: IntentNone, result: ResultNoMovement},
		{name: "swipe up", ev: Event{Kind: KindSwipe, StartY: 400, EndY: 300}, intent: IntentAdvance, result: ResultAccepted},
		{name: "swipe down", ev: Event{Kind: KindSwipe, StartY: 300, EndY: 400}, intent: IntentRetreat, result: ResultAccepted},
		{name: "swipe at threshold", ev: Event{Kind: KindSwipe, StartY: 350, EndY: 300}, intent: IntentNone, result: ResultTooShort},
		{name: "swipe just over", ev: Event{Kind: KindSwipe, StartY: 350.5, EndY: 300}, intent: IntentAdvance, result: ResultAccepted},
		{name: "unknown", ev: Event{Kind: "pinch"}, intent: IntentNone, result: ResultUnknownKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newDetector()
			intent, result := d.Detect(tt.ev, false)
			if intent != tt.intent || result != tt.result {
				t.Fatalf("получили %s/%s, ожидали %s/%s", intent, result, tt.intent, tt.result)
			}
		})
	}
}

func TestCooldownYieldsOneNavigation(t *testing.T) {
	d, loop := newDetector()
	wheel := Event{Kind: KindWheel, DeltaY: 1}

	accepted := 0
	for i := 0; i < 2; i++ {
		if intent, _ := d.Detect(wheel, false); intent != IntentNone {
			accepted++
		}
		loop.Advance(100 * time.Millisecond)
	}
	if accepted != 1 {
		t.Fatalf("два события в окне задержки дали %d переходов", accepted)
	}
}

func TestSpacedEventsYieldTwoNavigations(t *testing.T) {
	d, loop := newDetector()
	wheel := Event{Kind: KindWheel, DeltaY: 1}

	accepted := 0
	for i := 0; i < 2; i++ {
		if intent, _ := d.Detect(wheel, false); intent != IntentNone {
			accepted++
		}
		loop.Advance(DefaultCooldown)
	}
	if accepted != 2 {
		t.Fatalf("события вне окна задержки дали %d переходов", accepted)
	}
}

func TestCooldownCountsFromAcceptedOnly(t *testing.T) {
	d, loop := newDetector()
	wheel := Event{Kind: KindWheel, DeltaY: 1}

	if _, res := d.Detect(wheel, false); res != ResultAccepted {
		t.Fatalf("первое событие: %s", res)
	}
	loop.Advance(500 * time.Millisecond)
	if _, res := d.Detect(wheel, false); res != ResultCooldown {
		t.Fatalf("ожидали cooldown, получили %s", res)
	}
	loop.Advance(100 * time.Millisecond)
	if _, res := d.Detect(wheel, false); res != ResultAccepted {
		t.Fatalf("отброшенное событие не должно продлевать задержку, получили %s", res)
	}
}

func TestRefusedWhileTransitioning(t *testing.T) {
	d, loop := newDetector()
	wheel := Event{Kind: KindWheel, DeltaY: 1}
	if _, res := d.Detect(wheel, true); res != ResultTransitioning {
		t.Fatalf("ожидали transitioning, получили %s", res)
	}
	loop.Advance(time.Millisecond)
	if _, res := d.Detect(wheel, false); res != ResultAccepted {
		t.Fatalf("отказ из-за перехода не запускает задержку, получили %s", res)
	}
}
