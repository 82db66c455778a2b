package homectl

import (
	"context"
	"strconv"
	"strings"

	"github.com/vango-dev/homectl/pkg/dom"
	"github.com/vango-dev/homectl/pkg/resync"
)

// Device endpoints of the fragment service. {id} is the device ID; the
// update templates also carry the value placeholder.
const (
	UpdateValuePath  = "/device/{id}/updateValue/{value}"
	UpdateStatusPath = "/device/{id}/updateStatus/{value}"
	EditDevicePath   = "/device/{id}/edit"
	DeleteDevicePath = "/device/{id}/delete"
	NewDevicePath    = "/device/new"
)

// DeviceElementID returns the ID of one element of a device row: value,
// plus, minus, toggle, edit or delete.
func DeviceElementID(device, part string) string {
	return "device-" + device + "-" + part
}

func devicePath(template, device string) string {
	return strings.Replace(template, "{id}", device, 1)
}

// AddDevice adds the row of one device to doc, the way the device listing
// renders it: a bounded value input with plus and minus buttons, an on/off
// switch, and edit and delete affordances.
func AddDevice(doc *dom.Document, st resync.State) {
	id := st.ID
	value := DeviceElementID(id, "value")

	doc.Add(dom.NewElement(value, "form-control").
		SetAttr(dom.AttrValue, strconv.Itoa(st.Value)).
		SetAttr(dom.AttrMin, strconv.Itoa(st.Min)).
		SetAttr(dom.AttrMax, strconv.Itoa(st.Max)).
		SetAttr(dom.AttrDevice, id))
	doc.Add(dom.NewElement(DeviceElementID(id, RolePlus), "btnPlus").
		SetAttr(dom.AttrRole, RolePlus).
		SetAttr(dom.AttrTarget, value).
		SetAttr(dom.AttrHref, devicePath(UpdateValuePath, id)).
		SetEnabled(st.Value < st.Max))
	doc.Add(dom.NewElement(DeviceElementID(id, RoleMinus), "btnMinus").
		SetAttr(dom.AttrRole, RoleMinus).
		SetAttr(dom.AttrTarget, value).
		SetAttr(dom.AttrHref, devicePath(UpdateValuePath, id)).
		SetEnabled(st.Value > st.Min))
	doc.Add(dom.NewElement(DeviceElementID(id, RoleToggle), "btnToggle").
		SetAttr(dom.AttrRole, RoleToggle).
		SetAttr(dom.AttrDevice, id).
		SetAttr(dom.AttrOn, strconv.FormatBool(st.On)).
		SetAttr(dom.AttrHref, devicePath(UpdateStatusPath, id)))
	doc.Add(dom.NewElement(DeviceElementID(id, RoleEdit), "btnEdit").
		SetAttr(dom.AttrRole, RoleEdit).
		SetAttr(dom.AttrHref, devicePath(EditDevicePath, id)))
	doc.Add(dom.NewElement(DeviceElementID(id, RoleDelete), "btnDelete").
		SetAttr(dom.AttrRole, RoleDelete).
		SetAttr(dom.AttrHref, devicePath(DeleteDevicePath, id)))
}

// NewView returns an empty view holding only the modal container.
func (c *Console) NewView() *dom.Document {
	doc := dom.NewDocument()
	doc.Add(dom.NewElement(c.cfg.Modal.Container))
	return doc
}

// LoadDevice fetches the state of device and returns a view containing
// its row.
func (c *Console) LoadDevice(ctx context.Context, device string) (*dom.Document, error) {
	r := c.resyncer
	if r == nil {
		r = resync.NewHTTP(c.client, c.cfg.Resync.StatePath)
	}
	st, err := r.Resync(ctx, device)
	if err != nil {
		return nil, err
	}
	doc := c.NewView()
	AddDevice(doc, st)
	return doc, nil
}
