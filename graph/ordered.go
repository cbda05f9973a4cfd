package graph

import "container/list"

// orderedSet хранит идентификаторы в порядке вставки.
// Вставка, удаление и проверка наличия за O(1), обход за O(k).
type orderedSet struct {
	order *list.List
	elems map[string]*list.Element
}

func newOrderedSet() *orderedSet {
	return &orderedSet{
		order: list.New(),
		elems: make(map[string]*list.Element),
	}
}

func (s *orderedSet) Add(id string) bool {
	if _, ok := s.elems[id]; ok {
		return false
	}
	s.elems[id] = s.order.PushBack(id)
	return true
}

func (s *orderedSet) Remove(id string) bool {
	elem, ok := s.elems[id]
	if !ok {
		return false
	}
	s.order.Remove(elem)
	delete(s.elems, id)
	return true
}

func (s *orderedSet) Contains(id string) bool {
	_, ok := s.elems[id]
	return ok
}

func (s *orderedSet) Len() int { return len(s.elems) }

// Each обходит элементы в порядке вставки, пока f возвращает true.
func (s *orderedSet) Each(f func(id string) bool) {
	for elem := s.order.Front(); elem != nil; elem = elem.Next() {
		if !f(elem.Value.(string)) {
			return
		}
	}
}

func (s *orderedSet) Slice() []string {
	res := make([]string, 0, s.Len())
	s.Each(func(id string) bool {
		res = append(res, id)
		return true
	})
	return res
}

// index - материализованное представление "ключ -> идентификаторы" поверх основного хранилища.
type index[K comparable] map[K]*orderedSet

func (idx index[K]) add(key K, id string) {
	set, ok := idx[key]
	if !ok {
		set = newOrderedSet()
		idx[key] = set
	}
	set.Add(id)
}

func (idx index[K]) remove(key K, id string) {
	set, ok := idx[key]
	if !ok {
		return
	}
	set.Remove(id)
	if set.Len() == 0 {
		delete(idx, key)
	}
}

func (idx index[K]) get(key K) []string {
	set, ok := idx[key]
	if !ok {
		return nil
	}
	return set.Slice()
}
