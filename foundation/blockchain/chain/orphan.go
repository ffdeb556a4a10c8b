package chain

import "errors"

// ProcessOrphans connects every orphan block whose parent is now known and
// returns the number of blocks that were connected. Orphans that are
// rejected are dropped.
func (m *Manager) ProcessOrphans() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var connected int

	for {
		progress := false

		for id, block := range m.orphans {
			if _, _, ok := m.resolve(block); !ok {
				continue
			}

			delete(m.orphans, id)
			progress = true

			idx, err := m.connect(block, false)
			if err != nil {
				if errors.Is(err, ErrReorgInvariant) {
					return connected, err
				}

				m.evHandler("chain: ProcessOrphans: block[%s]: dropped: %s", id, err)
				continue
			}

			if idx != NotConnected {
				connected++
			}
		}

		if !progress {
			return connected, nil
		}
	}
}
