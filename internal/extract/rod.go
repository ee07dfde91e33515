package extract

import (
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// FromRod adapts a live rod page to the extractor's Page interface.
func FromRod(p *rod.Page) Page { return rodPage{p: p} }

type rodPage struct {
	p *rod.Page
}

func (rp rodPage) Elements(selector string) ([]Element, error) {
	els, err := rp.p.Elements(selector)
	if err != nil {
		return nil, err
	}
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = rodElement{el: el}
	}
	return out, nil
}

func (rp rodPage) ScrollBottom() error {
	_, err := rp.p.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

type rodElement struct {
	el *rod.Element
}

func (re rodElement) Find(selector string) (Element, bool, error) {
	ok, el, err := re.el.Has(selector)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return rodElement{el: el}, true, nil
}

func (re rodElement) Click() error {
	return re.el.Click(proto.InputMouseButtonLeft, 1)
}

func (re rodElement) WaitStable(d time.Duration) error {
	return re.el.Timeout(d).WaitStable(300 * time.Millisecond)
}

func (re rodElement) Text() (string, error) {
	return re.el.Text()
}
