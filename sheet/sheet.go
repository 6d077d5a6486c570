// Package sheet renders the printable product sheet.
package sheet

import (
	"html/template"
	"io"

	"stockroom/catalog"
	"stockroom/domain"
)

var sheetTemplate = template.Must(template.New("sheet").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Product.Name}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #999; padding: 4px 8px; text-align: left; }
</style>
</head>
<body>
<h1>{{.Product.Name}}</h1>
{{if .Product.Image}}<img src="{{.Product.Image}}" alt="{{.Product.Name}}" width="200">{{end}}
<dl>
<dt>Type</dt><dd>{{.Product.Type}}</dd>
<dt>Supplier</dt><dd>{{.Product.Supplier}}</dd>
<dt>Price</dt><dd>{{.Product.Price.StringFixed 2}}</dd>
<dt>Barcode</dt><dd>{{.Product.Barcode}}</dd>
{{with .LastEdit}}<dt>Last edited by</dt><dd>Warehouseman {{.EditorID}}, {{.At.Format "2006-01-02 15:04"}}</dd>
{{end}}</dl>
<h2>Stock</h2>
<table>
<tr><th>Warehouse</th><th>City</th><th>Quantity</th></tr>
{{range .Product.Stocks}}<tr><td>{{.Name}}</td><td>{{.Localisation.City}}</td><td>{{.Quantity}}</td></tr>
{{else}}<tr><td colspan="3">No stock</td></tr>
{{end}}<tr><th colspan="2">Total</th><th>{{.Total}}</th></tr>
</table>
</body>
</html>
`))

type view struct {
	Product  domain.Product
	Total    int
	LastEdit *domain.EditRecord
}

// Render writes the HTML sheet for p to w.
func Render(w io.Writer, p domain.Product) error {
	v := view{Product: p, Total: catalog.TotalQuantity(p)}
	if last, ok := p.LastEditor(); ok {
		v.LastEdit = &last
	}
	return sheetTemplate.Execute(w, v)
}
