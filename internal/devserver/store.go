package devserver

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/five82/vitrine/internal/catalog"
	"github.com/five82/vitrine/internal/query"
)

const timestampLayout = "2006-01-02T15:04:05"

type record struct {
	product catalog.Product
	created time.Time
	updated time.Time
}

// Store is the in-memory product table behind the dev backend.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	records map[int64]record
	now     func() time.Time
}

// NewStore returns an empty store. now may be nil.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{nextID: 1, records: make(map[int64]record), now: now}
}

// Create adds a product from in and returns it with its assigned id.
func (s *Store) Create(in catalog.ProductInput) catalog.Product {
	return s.insert(in, s.now())
}

func (s *Store) insert(in catalog.ProductInput, at time.Time) catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	at = at.UTC().Truncate(time.Second)
	p := catalog.Product{
		ID:        s.nextID,
		Title:     in.Title,
		Price:     in.Price,
		URL:       in.URL,
		CreatedAt: at.Format(timestampLayout),
		UpdatedAt: at.Format(timestampLayout),
	}
	s.records[p.ID] = record{product: p, created: at, updated: at}
	s.nextID++
	return p
}

// Get returns the product with id.
func (s *Store) Get(id int64) (catalog.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	return r.product, ok
}

// Delete removes id and reports whether it existed.
func (s *Store) Delete(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return false
	}
	delete(s.records, id)
	return true
}

// Len is the number of stored products.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Filter returns every product matching c, ordered by id.
func (s *Store) Filter(c query.Criteria) []catalog.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []catalog.Product
	for _, r := range s.records {
		if c.Match(r.product.Title, r.product.URL, r.product.Price, r.created, r.updated) {
			out = append(out, r.product)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var demoItems = []struct {
	title string
	price float64
	city  string
}{
	{"Bicicleta aro 29", 1450, "Curitiba"},
	{"Mesa de jantar 6 lugares", 899.9, "Porto Alegre"},
	{"Notebook 14\" 16GB", 3299, "Sao Paulo"},
	{"Cadeira de escritorio", 420, "Campinas"},
	{"Geladeira frost free", 2199.5, "Belo Horizonte"},
	{"Sofa 3 lugares", 1250, "Florianopolis"},
	{"Monitor 27\"", 1399, "Recife"},
	{"Fogao 4 bocas", 640, "Salvador"},
	{"Guitarra eletrica", 1800, "Fortaleza"},
	{"Tenis de corrida", 299.99, "Goiania"},
	{"Cafeteira expresso", 549, "Brasilia"},
	{"Estante de livros", 310, "Vitoria"},
}

// Seed fills the store with demo products spread over the last weeks and
// returns how many were added. Titles repeat with a suffix when n exceeds
// the built-in list.
func (s *Store) Seed(n int) int {
	base := s.now().UTC().AddDate(0, 0, -n)
	for i := 0; i < n; i++ {
		item := demoItems[i%len(demoItems)]
		title := item.title
		if round := i / len(demoItems); round > 0 {
			title = fmt.Sprintf("%s #%d", title, round+1)
		}
		s.insert(catalog.ProductInput{
			Title: title,
			URL:   fmt.Sprintf("https://example.com/anuncio/%d", i+1),
			Price: item.price + float64(i/len(demoItems))*10,
			City:  item.city,
		}, base.AddDate(0, 0, i))
	}
	return n
}
