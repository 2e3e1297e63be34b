// Package nfdc queues management commands to the local forwarder and
// executes them off the router's main loop. Failed commands are retried
// with exponential backoff without blocking the commands behind them.
package nfdc

import (
	"fmt"
	"time"

	"github.com/named-data/ndnd/std/log"
	"github.com/named-data/ndnd/std/ndn"
	mgmt "github.com/named-data/ndnd/std/ndn/mgmt_2022"
	"github.com/named-data/ndnd/std/types/optional"
)

// Origin for routes registered by this daemon.
const RouteOriginNlsr = uint64(mgmt.RouteOriginNLSR)

// Backoff window for failed commands.
const (
	retryBackoffMin = 250 * time.Millisecond
	retryBackoffMax = 4 * time.Second
)

type Cmd struct {
	Module string
	Cmd    string
	Args   *mgmt.ControlArgs
	// Retries < 0 keeps retrying until the command succeeds.
	Retries int
}

// queued is a command in flight together with its attempt count.
type queued struct {
	cmd     Cmd
	attempt int
}

type MgmtThread struct {
	// engine
	engine ndn.Engine
	// pending commands, in submission order
	queue chan queued
	// closed to stop the thread
	stop chan struct{}
}

func NewMgmtThread(engine ndn.Engine) *MgmtThread {
	return &MgmtThread{
		engine: engine,
		queue:  make(chan queued, 1024),
		stop:   make(chan struct{}),
	}
}

func (m *MgmtThread) String() string {
	return "nfdc"
}

func (m *MgmtThread) Start() {
	for {
		select {
		case q := <-m.queue:
			m.execute(q)
		case <-m.stop:
			return
		}
	}
}

func (m *MgmtThread) Stop() {
	close(m.stop)
}

// Exec submits a command for execution.
func (m *MgmtThread) Exec(cmd Cmd) {
	m.submit(queued{cmd: cmd})
}

func (m *MgmtThread) submit(q queued) {
	select {
	case m.queue <- q:
	case <-m.stop:
	default:
		log.Error(m, "Dropping forwarder command, queue is full",
			"module", q.cmd.Module, "cmd", q.cmd.Cmd)
	}
}

// execute runs one attempt of a command. A failure schedules the next
// attempt after a backoff instead of stalling the queue.
func (m *MgmtThread) execute(q queued) {
	_, err := m.engine.ExecMgmtCmd(q.cmd.Module, q.cmd.Cmd, q.cmd.Args)
	if err == nil {
		return
	}

	q.attempt++
	if q.cmd.Retries >= 0 && q.attempt > q.cmd.Retries {
		log.Error(m, "Giving up on forwarder command", "err", err,
			"module", q.cmd.Module, "cmd", q.cmd.Cmd, "attempts", q.attempt)
		return
	}

	backoff := retryBackoffMax
	if shift := q.attempt - 1; shift < 4 {
		backoff = retryBackoffMin << shift
	}
	log.Warn(m, "Forwarder command failed, retrying", "err", err,
		"module", q.cmd.Module, "cmd", q.cmd.Cmd, "attempt", q.attempt, "backoff", backoff)

	time.AfterFunc(backoff, func() {
		select {
		case <-m.stop:
		default:
			m.submit(q)
		}
	})
}

// CreateFace synchronously creates a face to the given URI.
// Returns the face ID and whether the face was newly created.
func (m *MgmtThread) CreateFace(uri string, mtu uint64) (uint64, bool, error) {
	args := &mgmt.ControlArgs{
		Uri:             optional.Some(uri),
		FacePersistency: optional.Some(uint64(mgmt.PersistencyPermanent)),
	}
	if mtu > 0 {
		args.Mtu = optional.Some(mtu)
	}

	raw, err := m.engine.ExecMgmtCmd("faces", "create", args)
	if err != nil {
		return 0, false, err
	}
	res, ok := raw.(*mgmt.ControlResponse)
	if !ok || res.Val == nil || res.Val.Params == nil {
		return 0, false, fmt.Errorf("invalid response to face creation")
	}

	faceId, ok := res.Val.Params.FaceId.Get()
	if !ok {
		return 0, false, fmt.Errorf("no face ID in response (status %d)", res.Val.StatusCode)
	}

	switch res.Val.StatusCode {
	case 200:
		return faceId, true, nil
	case 409: // already exists
		return faceId, false, nil
	default:
		return 0, false, fmt.Errorf("face creation failed (status %d %s)",
			res.Val.StatusCode, res.Val.StatusText)
	}
}

// DestroyFace synchronously destroys a face by ID.
func (m *MgmtThread) DestroyFace(faceId uint64) error {
	_, err := m.engine.ExecMgmtCmd("faces", "destroy", &mgmt.ControlArgs{
		FaceId: optional.Some(faceId),
	})
	return err
}
