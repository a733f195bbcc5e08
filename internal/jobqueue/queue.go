// Package jobqueue 提供单工作协程的先进先出任务队列，
// 把脚本执行、历史落库等副作用从调用方的执行上下文中剥离。
package jobqueue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job 是一个延迟执行的工作单元；参数通过闭包携带，队列本身不关心。
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Queue 是无界 FIFO 队列，配一个常驻工作协程串行消费。
// Enqueue 永不阻塞；任务失败只记日志并丢弃，不重试。
type Queue struct {
	mu           sync.Mutex
	jobs         []Job
	running      bool
	stopCh       chan struct{}
	done         chan struct{}
	pollInterval time.Duration
	logger       *zap.Logger
}

// New 创建队列；pollInterval 决定空闲时观察停止信号的节奏。
func New(pollInterval time.Duration, logger *zap.Logger) *Queue {
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	return &Queue{
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Enqueue 入队一个任务，立即返回。
func (q *Queue) Enqueue(job Job) {
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()
}

// Start 启动工作协程；已在运行时再次调用是空操作。
func (q *Queue) Start() {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.stopCh = make(chan struct{})
	q.done = make(chan struct{})
	q.mu.Unlock()

	go q.workerLoop(q.stopCh, q.done)
	q.logger.Info("job queue worker started")
}

// Stop 通知工作协程退出并等待其结束；未出队的任务直接丢弃。
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	stopCh, done := q.stopCh, q.done
	q.mu.Unlock()

	close(stopCh)
	<-done

	q.mu.Lock()
	dropped := len(q.jobs)
	q.jobs = nil
	q.mu.Unlock()
	if dropped > 0 {
		q.logger.Warn("job queue stopped with pending jobs dropped", zap.Int("dropped", dropped))
	} else {
		q.logger.Info("job queue worker stopped")
	}
}

// Len 返回当前积压任务数。
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func (q *Queue) workerLoop(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(q.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			for {
				job, ok := q.dequeue()
				if !ok {
					break
				}
				q.invoke(job)
			}
		}
	}
}

func (q *Queue) dequeue() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return Job{}, false
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, true
}

// invoke 执行单个任务；panic 与错误都只记日志，绝不让工作协程退出。
func (q *Queue) invoke(job Job) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("job panicked", zap.String("job", job.Name), zap.Any("panic", r))
		}
	}()

	if job.Run == nil {
		q.logger.Warn("job has no callable", zap.String("job", job.Name))
		return
	}
	if err := job.Run(context.Background()); err != nil {
		q.logger.Error("job failed", zap.String("job", job.Name), zap.Error(err))
	}
}
