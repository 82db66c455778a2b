// Package dom is the page model the console controllers read and write.
//
// A Document holds the elements of one mounted view by ID. Elements carry
// attributes (value, min, max, href, disabled, data-*), inner markup, and
// classes. The Document also tracks page-level presentation: which modal
// is shown, the current location, and data-table refresh requests.
//
// Every accessor is safe for concurrent use: controllers mutate elements
// synchronously on interaction and again from request completions.
//
//	doc := dom.NewDocument()
//	input := doc.Add(dom.NewElement("device-3-value").
//	    SetAttr("value", "5").SetAttr("min", "0").SetAttr("max", "10"))
package dom
