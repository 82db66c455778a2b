package devserver

import (
	"html/template"
	"io"
)

var fragments = template.Must(template.New("fragments").Parse(`
{{define "edit"}}<div class="modal fade" id="modalNewOrEdit" tabindex="-1" role="dialog">
  <div class="modal-dialog" role="document"><div class="modal-content">
    <div class="modal-header"><h5 class="modal-title">{{if .ID}}Edit {{.Name}}{{else}}New device{{end}}</h5></div>
    <form method="post" action="{{if .ID}}/device/{{.ID}}/edit{{else}}/device/new{{end}}">
      <input type="text" name="name" value="{{.Name}}">
      <input type="text" name="room" value="{{.Room}}">
      <input type="number" name="min" value="{{.Min}}">
      <input type="number" name="max" value="{{.Max}}">
      <button type="submit" class="btn btn-primary">Save</button>
    </form>
  </div></div>
</div>{{end}}

{{define "delete"}}<div class="modal fade" id="modalDelete" tabindex="-1" role="dialog">
  <div class="modal-dialog" role="document"><div class="modal-content">
    <div class="modal-body">Delete {{.Name}}?</div>
    <form method="post" action="/device/{{.ID}}/delete">
      <button type="submit" class="btn btn-danger">Delete</button>
    </form>
  </div></div>
</div>{{end}}

{{define "persons"}}<table id="dataTable" class="table">
  <thead><tr><th>ID</th><th>Name</th><th></th></tr></thead>
  <tbody>{{range .}}
    <tr><td>{{.ID}}</td><td>{{.Name}}</td>
      <td><button class="btnDelete" data-role="confirm-delete" data-person="{{.ID}}">Delete</button></td></tr>{{end}}
  </tbody>
</table>{{end}}
`))

func renderEdit(w io.Writer, d Device) error {
	return fragments.ExecuteTemplate(w, "edit", d)
}

func renderDelete(w io.Writer, d Device) error {
	return fragments.ExecuteTemplate(w, "delete", d)
}

func renderPersons(w io.Writer, persons []Person) error {
	return fragments.ExecuteTemplate(w, "persons", persons)
}
