package pool

import "fmt"

type storedSources struct {
	Sources [][20]byte
}

// RegisterSource appends an external liquidity source identity to the
// registry. Only the operator may mutate membership. Insertion order is
// preserved and drives solicitation order during sells.
func (e *Engine) RegisterSource(caller, source [20]byte) error {
	if e == nil {
		return fmt.Errorf("pool: engine not initialised")
	}
	if caller != e.operator {
		return ErrUnauthorized
	}
	sources, err := e.loadSources()
	if err != nil {
		return err
	}
	for _, existing := range sources {
		if existing == source {
			return ErrAlreadyRegistered
		}
	}
	sources = append(sources, source)
	if err := e.state.KVPut(sourcesKey, storedSources{Sources: sources}); err != nil {
		return err
	}
	e.emit(newSourceRegisteredEvent(source))
	return nil
}

// UnregisterSource removes a source, preserving the relative order of the
// remaining entries.
func (e *Engine) UnregisterSource(caller, source [20]byte) error {
	if e == nil {
		return fmt.Errorf("pool: engine not initialised")
	}
	if caller != e.operator {
		return ErrUnauthorized
	}
	sources, err := e.loadSources()
	if err != nil {
		return err
	}
	kept := make([][20]byte, 0, len(sources))
	found := false
	for _, existing := range sources {
		if existing == source {
			found = true
			continue
		}
		kept = append(kept, existing)
	}
	if !found {
		return ErrNotRegistered
	}
	if err := e.state.KVPut(sourcesKey, storedSources{Sources: kept}); err != nil {
		return err
	}
	e.emit(newSourceUnregisteredEvent(source))
	return nil
}

// Sources returns a read-only snapshot of the registry in insertion order.
func (e *Engine) Sources() ([][20]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("pool: engine not initialised")
	}
	return e.loadSources()
}

func (e *Engine) loadSources() ([][20]byte, error) {
	var stored storedSources
	ok, err := e.state.KVGet(sourcesKey, &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return stored.Sources, nil
}
