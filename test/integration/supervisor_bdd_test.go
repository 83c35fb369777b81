//go:build integration

package integration

import (
	"context"
	"os"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/procwatch/internal/daemon"
	"github.com/eliteGoblin/focusd/procwatch/internal/domain"
	"github.com/eliteGoblin/focusd/procwatch/internal/eventlog"
	"github.com/eliteGoblin/focusd/procwatch/internal/infra"
	"github.com/eliteGoblin/focusd/procwatch/internal/usecase"
	"github.com/eliteGoblin/focusd/procwatch/internal/watchlist"
	"github.com/eliteGoblin/focusd/procwatch/test/fixtures"
)

var _ = Describe("Supervisor", func() {
	var (
		tmpDir     string
		target     *fixtures.FakeTarget
		registry   domain.ProcessRegistry
		events     *eventlog.Log
		wl         *watchlist.Watchlist
		supervisor *daemon.Supervisor
	)

	pidsOf := func(name string) []int {
		snap, err := registry.Snapshot(context.Background())
		Expect(err).NotTo(HaveOccurred())
		return snap[name]
	}

	killAll := func(name string) {
		for _, pid := range pidsOf(name) {
			if p, err := os.FindProcess(pid); err == nil {
				_ = p.Kill()
			}
		}
	}

	countMessages := func(msg string) int {
		n := 0
		for _, e := range events.Events() {
			if e.Message == msg {
				n++
			}
		}
		return n
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "procwatch-integration-*")
		Expect(err).NotTo(HaveOccurred())

		target = fixtures.NewFakeTarget(tmpDir)
		Expect(target.Create()).To(Succeed())

		logger := zap.NewNop()
		registry = infra.NewProcessRegistry()
		events = eventlog.New(logger)
		wl = watchlist.New()
		Expect(wl.Set(target.Name, target.Command(5*time.Minute))).To(Succeed())

		restarter := usecase.NewRestarter(registry, infra.NewLauncher(logger), wl, events, logger)
		supervisor = daemon.NewSupervisor(
			daemon.SupervisorConfig{PollInterval: 200 * time.Millisecond},
			wl, restarter, events, logger,
		)
	})

	AfterEach(func() {
		_ = supervisor.Stop()
		supervisor.Wait()
		killAll(target.Name)
		os.RemoveAll(tmpDir)
	})

	Describe("Start", func() {
		Context("when the target is not running", func() {
			It("should launch it on the first cycle", func() {
				Expect(supervisor.Start()).To(Succeed())

				Eventually(func() []int { return pidsOf(target.Name) }, 5*time.Second, 100*time.Millisecond).
					ShouldNot(BeEmpty())
				Expect(countMessages(target.Name + " restarted")).To(Equal(1))
			})
		})

		Context("when the target is already running", func() {
			It("should leave it alone", func() {
				launcher := infra.NewLauncher(zap.NewNop())
				pid, err := launcher.Launch(context.Background(), target.Command(5*time.Minute))
				Expect(err).NotTo(HaveOccurred())
				Eventually(func() []int { return pidsOf(target.Name) }, 5*time.Second, 50*time.Millisecond).
					Should(ContainElement(pid))

				Expect(supervisor.Start()).To(Succeed())
				Consistently(func() int { return countMessages(target.Name + " restarted") }, time.Second, 100*time.Millisecond).
					Should(BeZero())
				Expect(pidsOf(target.Name)).To(Equal([]int{pid}))
			})
		})
	})

	Describe("Polling", func() {
		Context("when the target dies", func() {
			It("should relaunch it within a cycle", func() {
				Expect(supervisor.Start()).To(Succeed())
				Eventually(func() []int { return pidsOf(target.Name) }, 5*time.Second, 100*time.Millisecond).
					ShouldNot(BeEmpty())
				first := pidsOf(target.Name)

				killAll(target.Name)

				Eventually(func() int { return countMessages(target.Name + " restarted") }, 5*time.Second, 100*time.Millisecond).
					Should(Equal(2))
				Eventually(func() []int { return pidsOf(target.Name) }, 5*time.Second, 100*time.Millisecond).
					ShouldNot(Or(BeEmpty(), Equal(first)))
			})
		})

		Context("when the command cannot be executed", func() {
			It("should report the failure and keep polling", func() {
				Expect(wl.Set("pwbroken", tmpDir+"/does-not-exist")).To(Succeed())
				Expect(supervisor.Start()).To(Succeed())

				Eventually(func() int {
					n := 0
					for _, e := range events.Events() {
						if e.Kind == domain.EventLaunchFailed && strings.HasPrefix(e.Message, "pwbroken failed to start: ") {
							n++
						}
					}
					return n
				}, 5*time.Second, 100*time.Millisecond).Should(BeNumerically(">=", 2))
				Expect(pidsOf(target.Name)).NotTo(BeEmpty())
			})
		})
	})

	Describe("Stop", func() {
		It("should stop relaunching", func() {
			Expect(supervisor.Start()).To(Succeed())
			Eventually(func() []int { return pidsOf(target.Name) }, 5*time.Second, 100*time.Millisecond).
				ShouldNot(BeEmpty())

			Expect(supervisor.Stop()).To(Succeed())
			supervisor.Wait()
			killAll(target.Name)

			Consistently(func() []int { return pidsOf(target.Name) }, time.Second, 100*time.Millisecond).
				Should(BeEmpty())
		})
	})
})
