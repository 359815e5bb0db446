package view

import (
	"bytes"
	"testing"

	"github.com/abgdnv/productdesk/internal/client/products"
	"github.com/abgdnv/productdesk/internal/client/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPrinter(t *testing.T, lang string) (*Printer, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	p, err := NewPrinter(&buf, lang, "BRL")
	require.NoError(t, err)
	return p, &buf
}

func TestNewPrinter_Invalid(t *testing.T) {
	_, err := NewPrinter(&bytes.Buffer{}, "en", "XX")
	assert.Error(t, err)

	_, err = NewPrinter(&bytes.Buffer{}, "not a language!", "BRL")
	assert.Error(t, err)
}

func TestPrinter_Price(t *testing.T) {
	testCases := []struct {
		lang     string
		expected string
	}{
		{lang: "en", expected: "1,234.50"},
		{lang: "pt-BR", expected: "1.234,50"},
	}

	for _, tc := range testCases {
		t.Run(tc.lang, func(t *testing.T) {
			p, _ := newTestPrinter(t, tc.lang)

			assert.Contains(t, p.Price(1234.5), tc.expected)
		})
	}
}

func TestPrinter_Products(t *testing.T) {
	testCases := []struct {
		name     string
		lang     string
		items    []products.Product
		contains []string
	}{
		{
			name:     "empty en",
			lang:     "en",
			items:    []products.Product{},
			contains: []string{"No products found."},
		},
		{
			name:     "empty pt-BR",
			lang:     "pt-BR",
			items:    nil,
			contains: []string{"Nenhum produto cadastrado"},
		},
		{
			name:     "table pt-BR",
			lang:     "pt-BR",
			items:    []products.Product{{ID: 1, Name: "Produto 1", Price: 100}, {ID: 2, Name: "Produto 2", Price: 200.5}},
			contains: []string{"Nome", "Preço", "Produto 1", "100,00", "Produto 2", "200,50"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			p, buf := newTestPrinter(t, tc.lang)

			// when
			err := p.Products(tc.items)

			// then
			require.NoError(t, err)
			for _, s := range tc.contains {
				assert.Contains(t, buf.String(), s)
			}
		})
	}
}

func TestPrinter_Render(t *testing.T) {
	testCases := []struct {
		name     string
		lang     string
		state    state.State
		expected string
	}{
		{name: "loading", lang: "en", state: state.State{Status: state.Loading}, expected: "Loading...\n"},
		{name: "idle without error", lang: "en", state: state.State{Status: state.Idle}, expected: ""},
		{name: "error en", lang: "en", state: state.State{Error: state.MsgFetchFailed}, expected: state.MsgFetchFailed + "\n"},
		{name: "error pt-BR", lang: "pt-BR", state: state.State{Error: state.MsgDeleteFailed}, expected: "Erro ao excluir produto. Tente novamente.\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, buf := newTestPrinter(t, tc.lang)

			p.Render(tc.state)

			assert.Equal(t, tc.expected, buf.String())
		})
	}
}

func TestPrinter_Messages(t *testing.T) {
	p, buf := newTestPrinter(t, "pt-BR")

	p.LoggedIn("admin")
	p.Status(false)
	p.Deleted(3)

	assert.Equal(t, "Conectado como admin.\nNão autorizado\nProduto 3 excluído.\n", buf.String())
}
