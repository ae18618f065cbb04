package events_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/frahmantamala/expense-reimbursement/internal/core/events"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("EventBus", func() {
	var (
		bus *events.EventBus
		ctx context.Context
	)

	BeforeEach(func() {
		bus = events.NewEventBus(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))
		ctx = context.Background()
	})

	It("delivers async events to every subscriber", func() {
		var calls int32
		for i := 0; i < 3; i++ {
			bus.Subscribe(events.EventTypeReportClosed, func(ctx context.Context, e events.Event) error {
				atomic.AddInt32(&calls, 1)
				return nil
			})
		}

		evt := events.NewReportEvent(events.EventTypeReportClosed, "acme", 7, "2025-0001", []string{"a", "b"})
		Expect(bus.Publish(ctx, evt)).To(Succeed())
		bus.Wait()

		Expect(atomic.LoadInt32(&calls)).To(Equal(int32(3)))
	})

	It("ignores events without subscribers", func() {
		Expect(bus.Publish(ctx, events.NewStatementImportedEvent(1, 2, 3))).To(Succeed())
	})

	It("returns the first handler error on synchronous publish", func() {
		bus.Subscribe(events.EventTypeExpensesDeleted, func(ctx context.Context, e events.Event) error {
			return errors.New("boom")
		})

		err := bus.PublishSync(ctx, events.NewExpensesDeletedEvent(1, []string{"x"}, nil))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring(events.EventTypeExpensesDeleted))
	})

	It("keeps handlers running after the publishing context is cancelled", func() {
		done := make(chan error, 1)
		bus.Subscribe(events.EventTypeTransactionLinked, func(ctx context.Context, e events.Event) error {
			done <- ctx.Err()
			return nil
		})

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		Expect(bus.Publish(cctx, events.NewTransactionLinkEvent(events.EventTypeTransactionLinked, "t", "e", "acme"))).To(Succeed())
		Eventually(done).Should(Receive(BeNil()))
	})

	It("logs every domain event through the audit handler", func() {
		var buf bytes.Buffer
		audit := slog.New(slog.NewTextHandler(&buf, nil))
		bus.SubscribeAll(events.DomainEventTypes, events.LogHandler(audit))

		Expect(bus.PublishSync(ctx, events.NewStatementImportedEvent(1, 2, 0))).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("event_type=statement.imported"))
	})

	It("survives a panicking async handler", func() {
		var calls int32
		bus.Subscribe(events.EventTypeReportClosed, func(ctx context.Context, e events.Event) error {
			panic("handler bug")
		})
		bus.Subscribe(events.EventTypeReportClosed, func(ctx context.Context, e events.Event) error {
			atomic.AddInt32(&calls, 1)
			return nil
		})

		evt := events.NewReportEvent(events.EventTypeReportClosed, "acme", 7, "2025-0001", nil)
		Expect(bus.Publish(ctx, evt)).To(Succeed())
		bus.Wait()
		Expect(atomic.LoadInt32(&calls)).To(Equal(int32(1)))
	})
})
