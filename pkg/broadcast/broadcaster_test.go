package broadcast

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"helmet-orchestrator-be/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishMergesPartialUpdates(t *testing.T) {
	b := New(4, "dev")

	session := entity.NewSession(time.Now())
	session.CurrentMode = entity.ModeNightVision
	b.Publish(WithSession(session))
	b.Publish(WithTelemetry(entity.TelemetrySample{CPUPercent: 42}))
	b.Publish(WithCaption("a person crossing"), WithDegraded("video", true))

	snap := b.Snapshot()
	assert.Equal(t, entity.ModeNightVision, snap.Session.CurrentMode)
	assert.Equal(t, "Night vision active", snap.StatusMessage)
	assert.Equal(t, 42.0, snap.Telemetry.CPUPercent)
	assert.Equal(t, "a person crossing", snap.CaptionText)
	assert.Equal(t, []string{"video"}, snap.Degraded)
	assert.Equal(t, "dev", snap.Profile)
	assert.Equal(t, uint64(3), b.Published())

	b.Publish(WithDegraded("video", false))
	assert.Nil(t, b.Snapshot().Degraded)
}

func TestSubscribeIsPrimedWithCurrentSnapshot(t *testing.T) {
	b := New(4, "dev")
	b.Publish(WithCaption("hello"))

	sub := b.Subscribe(context.Background())
	defer sub.Cancel()

	select {
	case snap := <-sub.C():
		assert.Equal(t, "hello", snap.CaptionText)
	case <-time.After(time.Second):
		t.Fatal("expected primed snapshot")
	}
}

func TestOverflowDropsOldestKeepsNewest(t *testing.T) {
	b := New(4, "dev")
	sub := b.Subscribe(context.Background())
	defer sub.Cancel()

	for i := 1; i <= 10; i++ {
		b.Publish(WithCaption(strconv.Itoa(i)))
	}

	var got []string
	for i := 0; i < 4; i++ {
		got = append(got, (<-sub.C()).CaptionText)
	}

	assert.Equal(t, []string{"7", "8", "9", "10"}, got)
	// primed snapshot plus captions 1..6
	assert.Equal(t, uint64(7), sub.Dropped())
}

func TestSlowSubscriberDoesNotDelayFastSubscriber(t *testing.T) {
	b := New(4, "dev")

	slow := b.Subscribe(context.Background())
	defer slow.Cancel()
	fast := b.Subscribe(context.Background())
	defer fast.Cancel()

	const total = 500
	latest := make(chan string, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for snap := range fast.C() {
			if snap.CaptionText == strconv.Itoa(total) {
				latest <- snap.CaptionText
				return
			}
		}
	}()

	start := time.Now()
	for i := 1; i <= total; i++ {
		b.Publish(WithCaption(strconv.Itoa(i)))
	}
	assert.Less(t, time.Since(start), time.Second, "publish must not wait on the stalled subscriber")

	select {
	case v := <-latest:
		assert.Equal(t, strconv.Itoa(total), v)
	case <-time.After(time.Second):
		t.Fatal("fast subscriber never observed the newest snapshot")
	}
	wg.Wait()

	// the stalled subscriber still holds the newest snapshot at the tail
	var last string
	for i := 0; i < 4; i++ {
		last = (<-slow.C()).CaptionText
	}
	assert.Equal(t, strconv.Itoa(total), last)
}

func TestSubscribersReceiveIndependentCopies(t *testing.T) {
	b := New(4, "dev")
	first := b.Subscribe(context.Background())
	defer first.Cancel()
	second := b.Subscribe(context.Background())
	defer second.Cancel()
	<-first.C()
	<-second.C()

	b.Publish(WithDetections(entity.DetectionSummary{Total: 2, ByLabel: map[string]int{"person": 2}}))

	a := <-first.C()
	c := <-second.C()
	a.Detections.ByLabel["person"] = 99

	assert.Equal(t, 2, c.Detections.ByLabel["person"])
	assert.Equal(t, 2, b.Snapshot().Detections.ByLabel["person"])
}

func TestContextCancellationEndsSubscription(t *testing.T) {
	b := New(4, "dev")
	ctx, cancel := context.WithCancel(context.Background())
	sub := b.Subscribe(ctx)
	require.Equal(t, 1, b.SubscriberCount())

	cancel()

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription not cancelled")
	}
	assert.Equal(t, 0, b.SubscriberCount())

	assert.NotPanics(t, func() {
		sub.Cancel()
		b.Publish(WithCaption("after cancel"))
	})
}

func TestCloseEndsAllSubscriptions(t *testing.T) {
	b := New(2, "dev")
	s1 := b.Subscribe(context.Background())
	s2 := b.Subscribe(context.Background())

	b.Close()

	<-s1.Done()
	<-s2.Done()
	assert.Equal(t, 0, b.SubscriberCount())

	late := b.Subscribe(context.Background())
	_, open := <-late.C()
	assert.False(t, open)
}

func TestWithTargetKeepsNewest(t *testing.T) {
	b := New(4, "dev")
	for i := 1; i <= MaxTargets+3; i++ {
		b.Publish(WithTarget(entity.Target{ID: i}))
	}
	targets := b.Snapshot().Targets
	require.Len(t, targets, MaxTargets)
	assert.Equal(t, 4, targets[0].ID)
	assert.Equal(t, MaxTargets+3, targets[len(targets)-1].ID)
}
