package app

import "sync"

// FieldGuard учёт анализов, идущих по каждому полю. Удаление поля
// возможно только когда по нему ничего не анализируется, а поле в процессе
// удаления не принимает новые точки.
type FieldGuard struct {
	mu       sync.Mutex
	inflight map[string]int
	deleting map[string]struct{}
}

// NewFieldGuard создаёт пустой учёт
func NewFieldGuard() *FieldGuard {
	return &FieldGuard{
		inflight: make(map[string]int),
		deleting: make(map[string]struct{}),
	}
}

// Enter регистрирует анализ; false, если поле удаляется
func (g *FieldGuard) Enter(fieldID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.deleting[fieldID]; ok {
		return false
	}
	g.inflight[fieldID]++
	return true
}

// Leave снимает регистрацию анализа
func (g *FieldGuard) Leave(fieldID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inflight[fieldID] <= 1 {
		delete(g.inflight, fieldID)
		return
	}
	g.inflight[fieldID]--
}

// BeginDelete помечает поле удаляемым; false, если по нему идут анализы
// или его уже удаляют
func (g *FieldGuard) BeginDelete(fieldID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inflight[fieldID] > 0 {
		return false
	}
	if _, ok := g.deleting[fieldID]; ok {
		return false
	}
	g.deleting[fieldID] = struct{}{}
	return true
}

// EndDelete снимает пометку удаления
func (g *FieldGuard) EndDelete(fieldID string) {
	g.mu.Lock()
	delete(g.deleting, fieldID)
	g.mu.Unlock()
}

// InFlight число идущих анализов по полю
func (g *FieldGuard) InFlight(fieldID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inflight[fieldID]
}
