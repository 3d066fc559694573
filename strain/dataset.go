package strain

// File is one loaded detector file.
type File struct {
	Series
	Duration float64 // Declared duration from the file header, in seconds
	Source   string
}

// DetectorFiles holds a detector's files in load order. The order matters:
// per-detector sample caps are applied by walking the files front to back.
type DetectorFiles struct {
	Detector string
	Files    []File
}

// Dataset is an ordered collection of detectors, each with ordered files.
type Dataset struct {
	Detectors []DetectorFiles
}

// Add appends a file to its detector, creating the detector entry on first
// use. The file's FileIndex and Detector are overwritten so that they always
// reflect the file's position within the dataset.
func (d *Dataset) Add(f File) {
	for i := range d.Detectors {
		if d.Detectors[i].Detector == f.Detector {
			f.FileIndex = len(d.Detectors[i].Files)
			d.Detectors[i].Files = append(d.Detectors[i].Files, f)
			return
		}
	}

	f.FileIndex = 0
	d.Detectors = append(d.Detectors, DetectorFiles{
		Detector: f.Detector,
		Files:    []File{f},
	})
}

func (d Dataset) Lookup(detector string) (DetectorFiles, bool) {
	for _, v := range d.Detectors {
		if v.Detector == detector {
			return v, true
		}
	}

	return DetectorFiles{}, false
}

// Names returns the detector identifiers in dataset order.
func (d Dataset) Names() []string {
	out := make([]string, 0, len(d.Detectors))
	for _, v := range d.Detectors {
		out = append(out, v.Detector)
	}
	return out
}

// FileCount is the total number of files across all detectors.
func (d Dataset) FileCount() int {
	n := 0
	for _, v := range d.Detectors {
		n += len(v.Files)
	}
	return n
}
