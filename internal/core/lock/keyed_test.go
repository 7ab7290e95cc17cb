package lock_test

import (
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/opsboard/internal/core/lock"
)

func TestLock(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Lock Suite")
}

var _ = Describe("Keyed", func() {
	var locks *lock.Keyed

	BeforeEach(func() {
		locks = lock.NewKeyed()
	})

	It("serializes holders of the same key", func() {
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			holders int
			maxSeen int
			count   int
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := locks.Lock("task-1")
				defer unlock()

				mu.Lock()
				holders++
				if holders > maxSeen {
					maxSeen = holders
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)
				count++

				mu.Lock()
				holders--
				mu.Unlock()
			}()
		}
		wg.Wait()

		Expect(maxSeen).To(Equal(1))
		Expect(count).To(Equal(20))
	})

	It("does not block other keys", func() {
		unlock := locks.Lock("task-1")
		defer unlock()

		done := make(chan struct{})
		go func() {
			release := locks.Lock("task-2")
			release()
			close(done)
		}()
		Eventually(done).Should(BeClosed())
	})

	It("drops entries once every holder has released", func() {
		first := locks.Lock("task-1")
		Expect(locks.Len()).To(Equal(1))

		acquired := make(chan func())
		go func() { acquired <- locks.Lock("task-1") }()
		Consistently(acquired, 20*time.Millisecond).ShouldNot(Receive())

		first()
		var second func()
		Eventually(acquired).Should(Receive(&second))
		Expect(locks.Len()).To(Equal(1))

		second()
		Expect(locks.Len()).To(BeZero())
	})
})
