package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-lobby/pkg/types"
)

// 结果标签
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Collector 会话指标收集器
type Collector struct {
	sessionsStarted *prometheus.CounterVec
	sessionsReady   *prometheus.CounterVec
	teardowns       *prometheus.CounterVec
	teardownErrors  *prometheus.CounterVec
	heartbeats      *prometheus.CounterVec
	directoryCalls  *prometheus.CounterVec
	connectWait     prometheus.Histogram
	sessionState    prometheus.Gauge
}

// NewCollector 创建收集器并注册到 reg
//
// 重复注册时复用已注册的收集器，允许同一进程内创建多个编排器。
func NewCollector(namespace string, reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Session workflows started, by transport role.",
		}, []string{"role"}),
		sessionsReady: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ready_total",
			Help:      "Sessions that reached a live transport connection, by role.",
		}, []string{"role"}),
		teardowns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "teardowns_total",
			Help:      "Session teardowns, by end reason.",
		}, []string{"reason"}),
		teardownErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "teardown_step_errors_total",
			Help:      "Teardown steps that failed, by step.",
		}, []string{"step"}),
		heartbeats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heartbeats_total",
			Help:      "Room heartbeat pings, by result.",
		}, []string{"result"}),
		directoryCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "directory_calls_total",
			Help:      "Room directory calls, by operation and result.",
		}, []string{"op", "result"}),
		connectWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "connect_wait_seconds",
			Help:      "Time spent waiting for the transport connection.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
		sessionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_state",
			Help:      "Current session state (0=disconnected .. 5=in_game).",
		}),
	}

	if reg == nil {
		return c, nil
	}

	var err error
	c.sessionsStarted, err = register(reg, c.sessionsStarted)
	if err != nil {
		return nil, err
	}
	if c.sessionsReady, err = register(reg, c.sessionsReady); err != nil {
		return nil, err
	}
	if c.teardowns, err = register(reg, c.teardowns); err != nil {
		return nil, err
	}
	if c.teardownErrors, err = register(reg, c.teardownErrors); err != nil {
		return nil, err
	}
	if c.heartbeats, err = register(reg, c.heartbeats); err != nil {
		return nil, err
	}
	if c.directoryCalls, err = register(reg, c.directoryCalls); err != nil {
		return nil, err
	}
	if c.connectWait, err = register(reg, c.connectWait); err != nil {
		return nil, err
	}
	if c.sessionState, err = register(reg, c.sessionState); err != nil {
		return nil, err
	}
	return c, nil
}

// register 注册收集器，已存在时返回已注册的实例
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// SessionStarted 记录工作流启动
func (c *Collector) SessionStarted(role types.TransportRole) {
	if c == nil {
		return
	}
	c.sessionsStarted.WithLabelValues(role.String()).Inc()
}

// SessionReady 记录连接完成
func (c *Collector) SessionReady(role types.TransportRole) {
	if c == nil {
		return
	}
	c.sessionsReady.WithLabelValues(role.String()).Inc()
}

// Teardown 记录拆除
func (c *Collector) Teardown(reason types.EndReason) {
	if c == nil {
		return
	}
	c.teardowns.WithLabelValues(string(reason)).Inc()
}

// TeardownStepFailed 记录拆除步骤失败
func (c *Collector) TeardownStepFailed(step string) {
	if c == nil {
		return
	}
	c.teardownErrors.WithLabelValues(step).Inc()
}

// Heartbeat 记录心跳结果
func (c *Collector) Heartbeat(err error) {
	if c == nil {
		return
	}
	c.heartbeats.WithLabelValues(result(err)).Inc()
}

// DirectoryCall 记录目录调用结果
func (c *Collector) DirectoryCall(op string, err error) {
	if c == nil {
		return
	}
	c.directoryCalls.WithLabelValues(op, result(err)).Inc()
}

// ConnectWait 记录等待连接耗时
func (c *Collector) ConnectWait(d time.Duration) {
	if c == nil {
		return
	}
	c.connectWait.Observe(d.Seconds())
}

// SetState 记录当前会话状态
func (c *Collector) SetState(s types.SessionState) {
	if c == nil {
		return
	}
	c.sessionState.Set(float64(s))
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
