package domain

// ImageObjectType is the schema.org type emitted for every image entry.
const ImageObjectType = "ImageObject"

// Document is the JSON-LD object graph describing a single content item.
type Document struct {
	Context          string        `json:"@context"`
	ID               string        `json:"@id"`
	Type             string        `json:"@type"`
	Description      string        `json:"description"`
	MainEntityOfPage string        `json:"mainEntityOfPage,omitempty"`
	Image            []ImageObject `json:"image,omitempty"`
}

// ImageObject is one entry of a document's image list. Zero dimensions are omitted.
type ImageObject struct {
	Type   string `json:"@type"`
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// NewImageObject maps a descriptor, keeping only positive dimensions.
func NewImageObject(d ImageDescriptor) ImageObject {
	img := ImageObject{Type: ImageObjectType, URL: d.URL}
	if d.Width > 0 {
		img.Width = d.Width
	}
	if d.Height > 0 {
		img.Height = d.Height
	}
	return img
}
