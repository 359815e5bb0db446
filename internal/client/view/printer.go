// Package view renders collection state and command results on a terminal.
package view

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/abgdnv/productdesk/internal/client/products"
	"github.com/abgdnv/productdesk/internal/client/state"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Printer writes localized output to w.
type Printer struct {
	w    io.Writer
	p    *message.Printer
	unit currency.Unit
}

// NewPrinter creates a Printer for the BCP 47 language lang and the ISO 4217 currency code.
func NewPrinter(w io.Writer, lang, currencyCode string) (*Printer, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("invalid language %q: %w", lang, err)
	}
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("invalid currency %q: %w", currencyCode, err)
	}
	return &Printer{w: w, p: message.NewPrinter(tag), unit: unit}, nil
}

// Price formats v with the currency symbol and two localized decimals.
func (p *Printer) Price(v float64) string {
	return p.p.Sprintf("%v %v", currency.Symbol(p.unit), number.Decimal(v, number.Scale(2)))
}

// Products prints the items as a table.
func (p *Printer) Products(items []products.Product) error {
	if len(items) == 0 {
		p.line(msgNoProducts)
		return nil
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", p.p.Sprintf(msgColID), p.p.Sprintf(msgColName), p.p.Sprintf(msgColPrice))
	for _, item := range items {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", strconv.FormatInt(item.ID, 10), item.Name, p.Price(item.Price.Float64()))
	}
	return tw.Flush()
}

// Render prints the transitions a user should see: loading and errors.
// It is meant to be registered with state.Machine.Subscribe.
func (p *Printer) Render(s state.State) {
	if s.Status == state.Loading {
		p.line(msgLoading)
		return
	}
	if s.Error != "" {
		p.line(s.Error)
	}
}

func (p *Printer) LoggedIn(username string) { p.line(msgLoggedIn, username) }
func (p *Printer) LoggedOut()               { p.line(msgLoggedOut) }
func (p *Printer) SessionExpired()          { p.line(msgSessionExpired) }
func (p *Printer) Added(name string)        { p.line(msgAdded, name) }
func (p *Printer) Deleted(id int64)         { p.line(msgDeleted, id) }
func (p *Printer) NameRequired()            { p.line(msgNameRequired) }
func (p *Printer) PriceInvalid()            { p.line(msgPriceInvalid) }

// Status prints whether a session is present.
func (p *Printer) Status(authenticated bool) {
	if authenticated {
		p.line(msgAuthenticated)
		return
	}
	p.line(msgUnauthenticated)
}

func (p *Printer) line(key message.Reference, args ...any) {
	_, _ = p.p.Fprintf(p.w, key, args...)
	_, _ = io.WriteString(p.w, "\n")
}
