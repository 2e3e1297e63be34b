// Package seq manages the per-LSA-type sequence numbers and their
// recovery across restarts.
package seq

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/named-data/ndnd/std/log"
)

// SeqFileName is the name of the sequence number file inside the
// configured state directory.
const SeqFileName = "nlsrSeqNo.txt"

// recoveryBump dominates increments that were lost if the previous run
// crashed before flushing the file.
const recoveryBump = 10

// HyperbolicState selects the routing mode.
type HyperbolicState int

const (
	HyperbolicOff HyperbolicState = iota
	HyperbolicDryRun
	HyperbolicOn
)

// MidstState enables the distance-vector extension.
type MidstState int

const (
	MidstOff MidstState = iota
	MidstOn
)

// Manager issues monotonic sequence numbers for the four LSA types and
// persists them to a plain text file.
type Manager struct {
	hyperbolic HyperbolicState
	midst      MidstState
	filePath   string

	nameSeq  uint64
	adjSeq   uint64
	corSeq   uint64
	midstSeq uint64
}

func NewManager(dir string, hyperbolic HyperbolicState, midst MidstState) *Manager {
	if dir == "" {
		dir, _ = os.UserHomeDir()
	}
	return &Manager{
		hyperbolic: hyperbolic,
		midst:      midst,
		filePath:   filepath.Join(dir, SeqFileName),
	}
}

func (m *Manager) String() string {
	return "seq-manager"
}

func (m *Manager) FilePath() string {
	return m.filePath
}

func (m *Manager) NameSeq() uint64  { return m.nameSeq }
func (m *Manager) AdjSeq() uint64   { return m.adjSeq }
func (m *Manager) CorSeq() uint64   { return m.corSeq }
func (m *Manager) MidstSeq() uint64 { return m.midstSeq }

func (m *Manager) IncrNameSeq() uint64 {
	m.nameSeq++
	return m.nameSeq
}

func (m *Manager) IncrAdjSeq() uint64 {
	m.adjSeq++
	return m.adjSeq
}

func (m *Manager) IncrCorSeq() uint64 {
	m.corSeq++
	return m.corSeq
}

func (m *Manager) IncrMidstSeq() uint64 {
	m.midstSeq++
	return m.midstSeq
}

// Initiate reads the sequence file if present and applies the
// mode-dependent recovery bumps. Counters belonging to a mode the router
// is no longer configured for are cleared with a warning.
func (m *Manager) Initiate() error {
	if err := m.read(); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read sequence file: %w", err)
		}
		log.Info(m, "No sequence file found, starting from zero", "path", m.filePath)
	}

	if m.hyperbolic != HyperbolicOff && m.midst == MidstOn {
		log.Warn(m, "Hyperbolic routing and MIDST should not be enabled at the same time")
	}

	if m.midst == MidstOff {
		m.nameSeq += recoveryBump
	}

	if m.hyperbolic != HyperbolicOn {
		if m.corSeq != 0 {
			log.Warn(m, "Router was previously configured for hyperbolic routing without clearing the sequence file")
			m.corSeq = 0
		}
		if m.midstSeq != 0 {
			log.Warn(m, "Router was previously configured for MIDST without clearing the sequence file")
			m.midstSeq = 0
		}
		m.adjSeq += recoveryBump
	}

	if m.hyperbolic != HyperbolicOff {
		if m.adjSeq != 0 {
			log.Warn(m, "Router was previously configured for link-state routing without clearing the sequence file")
			m.adjSeq = 0
		}
		if m.midstSeq != 0 {
			log.Warn(m, "Router was previously configured for MIDST without clearing the sequence file")
			m.midstSeq = 0
		}
		m.corSeq += recoveryBump
	}

	if m.midst == MidstOn {
		if m.corSeq != 0 {
			log.Warn(m, "Router was previously configured for hyperbolic routing without clearing the sequence file")
			m.corSeq = 0
		}
		if m.nameSeq != 0 {
			log.Warn(m, "Router was previously configured for link-state routing without clearing the sequence file")
			m.nameSeq = 0
		}
		m.midstSeq += recoveryBump
	}

	log.Debug(m, "Initiated sequence numbers", "name", m.nameSeq,
		"adj", m.adjSeq, "cor", m.corSeq, "midst", m.midstSeq)
	return nil
}

func (m *Manager) read() error {
	f, err := os.Open(m.filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	counters := map[string]*uint64{
		"NameLsaSeq":  &m.nameSeq,
		"AdjLsaSeq":   &m.adjSeq,
		"CorLsaSeq":   &m.corSeq,
		"MidstLsaSeq": &m.midstSeq,
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var key string
		var value uint64
		if _, err := fmt.Sscan(scanner.Text(), &key, &value); err != nil {
			continue
		}
		if counter, ok := counters[key]; ok {
			*counter = value
		}
	}
	return scanner.Err()
}

// Persist writes the current counters to the sequence file atomically.
// Write errors are logged; the in-memory counters are authoritative.
func (m *Manager) Persist() {
	content := fmt.Sprintf("NameLsaSeq %d\nAdjLsaSeq %d\nCorLsaSeq %d\nMidstLsaSeq %d\n",
		m.nameSeq, m.adjSeq, m.corSeq, m.midstSeq)

	tmp := m.filePath + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		log.Error(m, "Failed to write sequence file", "path", tmp, "err", err)
		return
	}
	if err := os.Rename(tmp, m.filePath); err != nil {
		log.Error(m, "Failed to replace sequence file", "path", m.filePath, "err", err)
	}
}
