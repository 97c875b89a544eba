package attendance

import "agriflow/internal/model"

// GroupHistory groups a farmer's records by practice title, keeping the
// order in which practices first appear. The project is taken from the
// first record that carries one.
func GroupHistory(farmer model.Farmer, records []model.AttendanceRecord) model.FarmerHistory {
	h := model.FarmerHistory{Farmer: farmer}
	index := make(map[string]int)
	for _, rec := range records {
		practice := model.PracticeDetail{Title: "Unknown practice"}
		if rec.Activity != nil && rec.Activity.TargetPractice != nil {
			practice = *rec.Activity.TargetPractice
			if h.Project == nil && practice.Project != nil {
				p := *practice.Project
				h.Project = &p
			}
		}
		if h.Farmer.Names == "" && rec.Farmer != nil {
			h.Farmer = *rec.Farmer
		}
		i, ok := index[practice.Title]
		if !ok {
			i = len(h.Practices)
			index[practice.Title] = i
			h.Practices = append(h.Practices, model.PracticeAttendance{Practice: practice})
		}
		h.Practices[i].Records = append(h.Practices[i].Records, rec)
	}
	return h
}
