package models

// Gender values accepted by the records backend.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// StudentRecord represents one student as held by the backend. ID is zero
// only for a record that has not been saved yet.
type StudentRecord struct {
	ID        int64              `json:"id,omitempty"`
	Name      string             `json:"name"`
	Age       int                `json:"age"`
	Gender    string             `json:"gender"`
	Major     string             `json:"major"`
	ClassName string             `json:"class_name"`
	Grades    map[string]float64 `json:"grades"`
}

// Clone returns a deep copy of the record, including the grades mapping.
func (r StudentRecord) Clone() StudentRecord {
	out := r
	if r.Grades != nil {
		out.Grades = make(map[string]float64, len(r.Grades))
		for subject, score := range r.Grades {
			out.Grades[subject] = score
		}
	}
	return out
}
