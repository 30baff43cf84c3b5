package store

import (
	"sync"

	"catalog-be/internal/product"
)

// Action is anything that can be dispatched to the store. Every reducer
// sees every action and ignores the ones it does not handle.
type Action interface {
	isAction()
}

type State struct {
	Products ProductsState
	Filters  Filters
	Form     Form
}

func InitialState() State {
	return State{
		Products: ProductsState{Items: []product.Product{}},
		Filters:  Filters{Categories: []string{}},
		Form:     NewForm(),
	}
}

func reduce(s State, a Action) State {
	return State{
		Products: reduceProducts(s.Products, a),
		Filters:  reduceFilters(s.Filters, a),
		Form:     reduceForm(s.Form, a),
	}
}

// Store holds the client state. Dispatch is synchronous: when it returns,
// the new state is visible and every subscriber has been called.
type Store struct {
	mu     sync.Mutex
	state  State
	subs   map[int]func(State)
	nextID int
}

func New() *Store {
	return &Store{state: InitialState(), subs: make(map[int]func(State))}
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *Store) Dispatch(actions ...Action) State {
	s.mu.Lock()
	for _, a := range actions {
		s.state = reduce(s.state, a)
	}
	snapshot := s.state.clone()
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot.clone())
	}
	return snapshot
}

// Subscribe registers fn to run after every dispatch and returns a func
// that removes it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s State) clone() State {
	s.Products.Items = append([]product.Product(nil), s.Products.Items...)
	if s.Products.Items == nil {
		s.Products.Items = []product.Product{}
	}
	s.Filters.Categories = append([]string{}, s.Filters.Categories...)
	return s
}
