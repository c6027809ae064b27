package index

// Image is the metadata kept for one uploaded file.
type Image struct {
	ID   string   `json:"id"`
	Src  string   `json:"src"`  // public path under the uploads route
	Tags []string `json:"tags"` // declared media type of the upload
	Name string   `json:"name,omitempty"`
}

func (img Image) clone() Image {
	out := img
	if img.Tags != nil {
		out.Tags = append(make([]string, 0, len(img.Tags)), img.Tags...)
	}
	return out
}
