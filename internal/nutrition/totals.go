package nutrition

// Totals 是一天内所有日志条目的聚合值。
// 它同时被嵌入每日汇总行和用户资料上的今日快照，两者的列名只差一个前缀。
type Totals struct {
	// 饮食
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`

	// 运动
	CaloriesBurned  float64 `json:"caloriesBurned"`
	ExerciseMinutes float64 `json:"exerciseMinutes"`

	FoodEntries     int64 `json:"foodEntries"`
	ExerciseEntries int64 `json:"exerciseEntries"`
	EntryCount      int64 `json:"entryCount"`
}

// Add 返回逐字段相加后的结果。删除条目时传入 Negate 后的增量。
// 结果不会被截断到零。
func (t Totals) Add(d Totals) Totals {
	return Totals{
		Calories:        t.Calories + d.Calories,
		Protein:         t.Protein + d.Protein,
		Carbs:           t.Carbs + d.Carbs,
		Fat:             t.Fat + d.Fat,
		CaloriesBurned:  t.CaloriesBurned + d.CaloriesBurned,
		ExerciseMinutes: t.ExerciseMinutes + d.ExerciseMinutes,
		FoodEntries:     t.FoodEntries + d.FoodEntries,
		ExerciseEntries: t.ExerciseEntries + d.ExerciseEntries,
		EntryCount:      t.EntryCount + d.EntryCount,
	}
}

// Negate 返回每个字段取反后的增量
func (t Totals) Negate() Totals {
	return Totals{}.sub(t)
}

func (t Totals) sub(d Totals) Totals {
	return Totals{
		Calories:        t.Calories - d.Calories,
		Protein:         t.Protein - d.Protein,
		Carbs:           t.Carbs - d.Carbs,
		Fat:             t.Fat - d.Fat,
		CaloriesBurned:  t.CaloriesBurned - d.CaloriesBurned,
		ExerciseMinutes: t.ExerciseMinutes - d.ExerciseMinutes,
		FoodEntries:     t.FoodEntries - d.FoodEntries,
		ExerciseEntries: t.ExerciseEntries - d.ExerciseEntries,
		EntryCount:      t.EntryCount - d.EntryCount,
	}
}

// Columns 返回用于 gorm Updates 的列名到值的映射。
// 使用map而不是结构体，避免零值字段被gorm跳过。
func (t Totals) Columns(prefix string) map[string]any {
	return map[string]any{
		prefix + "calories":         t.Calories,
		prefix + "protein":          t.Protein,
		prefix + "carbs":            t.Carbs,
		prefix + "fat":              t.Fat,
		prefix + "calories_burned":  t.CaloriesBurned,
		prefix + "exercise_minutes": t.ExerciseMinutes,
		prefix + "food_entries":     t.FoodEntries,
		prefix + "exercise_entries": t.ExerciseEntries,
		prefix + "entry_count":      t.EntryCount,
	}
}
