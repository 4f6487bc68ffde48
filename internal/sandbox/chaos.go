package sandbox

import (
	"errors"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/ashendes/order-edit/internal/metrics"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// DefaultFailureRate is the share of requests failed while chaos is enabled
const DefaultFailureRate = 0.3

var errSimulated = errors.New("simulated failure")

// chaos injects failures and delays into backend requests
type chaos struct {
	mutex       sync.RWMutex
	enabled     bool
	slowMode    bool
	failureRate float64
	slowDelay   func() time.Duration
}

func newChaos(failureRate float64) *chaos {
	if failureRate <= 0 {
		failureRate = DefaultFailureRate
	}
	return &chaos{
		failureRate: failureRate,
		slowDelay: func() time.Duration {
			return time.Duration(2000+rand.Intn(3000)) * time.Millisecond
		},
	}
}

func (ch *chaos) setEnabled(enabled bool) {
	ch.mutex.Lock()
	defer ch.mutex.Unlock()
	ch.enabled = enabled

	metrics.ChaosFailureRate.WithLabelValues(ServiceName).Set(gauge(enabled))
}

func (ch *chaos) setSlowMode(enabled bool) {
	ch.mutex.Lock()
	defer ch.mutex.Unlock()
	ch.slowMode = enabled

	metrics.ChaosSlowMode.WithLabelValues(ServiceName).Set(gauge(enabled))
}

func (ch *chaos) state() (enabled, slowMode bool) {
	ch.mutex.RLock()
	defer ch.mutex.RUnlock()
	return ch.enabled, ch.slowMode
}

func (ch *chaos) simulate() error {
	ch.mutex.RLock()
	enabled, slowMode, rate, delay := ch.enabled, ch.slowMode, ch.failureRate, ch.slowDelay
	ch.mutex.RUnlock()

	if slowMode {
		d := delay()
		log.WithField("delay_ms", d.Milliseconds()).Debug("Chaos: Simulating slow response")
		time.Sleep(d)
	}
	if enabled && rand.Float64() < rate {
		return errSimulated
	}
	return nil
}

// middleware fails or delays requests according to the chaos switches
func (ch *chaos) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := ch.simulate(); err != nil {
			log.WithField("path", c.Request.URL.Path).Warn("Chaos: Simulated failure")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, envelope{
				Success: false,
				Message: "Service temporarily unavailable: " + err.Error(),
			})
			return
		}
		c.Next()
	}
}

func gauge(on bool) float64 {
	if on {
		return 1
	}
	return 0
}
