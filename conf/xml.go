package conf

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"
)

// ReadXML parses an XML document into a document node. The returned node has an empty
// key and holds the document's root element as its only child, so callers pick the
// element they expect with Child.
func ReadXML(r io.Reader) (Config, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	stack := []Config{{}}
	texts := []string{""}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Config{}, errors.Wrap(err, "conf: parse xml")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := Config{Key: t.Name.Local}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				node.Attrs = append(node.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
			}
			stack = append(stack, node)
			texts = append(texts, "")
		case xml.CharData:
			texts[len(texts)-1] += string(t)
		case xml.EndElement:
			n := len(stack) - 1
			node := stack[n]
			node.Value = strings.TrimSpace(texts[n])
			stack, texts = stack[:n], texts[:n]
			stack[n-1].Children = append(stack[n-1].Children, node)
		}
	}

	doc := stack[0]
	if len(doc.Children) == 0 {
		return Config{}, errors.New("conf: document has no root element")
	}
	return doc, nil
}

// WriteXML writes c as the root element of an indented XML document.
func WriteXML(w io.Writer, c Config) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return errors.Wrap(err, "conf: write header")
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := encode(enc, c); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return errors.Wrap(err, "conf: flush")
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func encode(enc *xml.Encoder, c Config) error {
	if c.Key == "" {
		return errors.New("conf: cannot encode a node without a key")
	}
	start := xml.StartElement{Name: xml.Name{Local: c.Key}}
	for _, a := range c.Attrs {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value})
	}
	if err := enc.EncodeToken(start); err != nil {
		return errors.Wrapf(err, "conf: encode <%s>", c.Key)
	}
	if c.Value != "" {
		if err := enc.EncodeToken(xml.CharData(c.Value)); err != nil {
			return errors.Wrapf(err, "conf: encode <%s> value", c.Key)
		}
	}
	for _, ch := range c.Children {
		if err := encode(enc, ch); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}
