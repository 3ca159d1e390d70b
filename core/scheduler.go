package core

// MaxTasks is the capacity of the scheduler task table
const MaxTasks = 16

// Poller is a component driven once per loop iteration. Poll must not
// block: the whole loop stalls until it returns.
type Poller interface {
	Poll(now Micros)
}

// PollFunc adapts a function to the Poller interface
type PollFunc func(now Micros)

func (f PollFunc) Poll(now Micros) { f(now) }

// Scheduler polls registered tasks in registration order
type Scheduler struct {
	tasks [MaxTasks]Poller
	count int

	iterations uint32
}

// Register appends a task to the poll order
func (s *Scheduler) Register(p Poller) error {
	if p == nil {
		return ErrNoDriver
	}
	if s.count >= MaxTasks {
		return ErrSchedulerFull
	}
	s.tasks[s.count] = p
	s.count++
	return nil
}

// Len returns the number of registered tasks
func (s *Scheduler) Len() int { return s.count }

// Iterations returns how many times RunOnce has completed
func (s *Scheduler) Iterations() uint32 { return s.iterations }

// RunOnce polls every task with the same timestamp
func (s *Scheduler) RunOnce(now Micros) {
	for i := 0; i < s.count; i++ {
		s.tasks[i].Poll(now)
	}
	s.iterations++
}

// Run samples clock and polls all tasks until keepRunning returns false.
// A nil keepRunning runs forever.
func (s *Scheduler) Run(clock Clock, keepRunning func() bool) {
	for keepRunning == nil || keepRunning() {
		s.RunOnce(clock.Now())
	}
}
