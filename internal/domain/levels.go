package domain

// UserLevel описывает уровень пользователя по количеству просмотренной рекламы.
type UserLevel string

const (
	UserLevelBronze   UserLevel = "bronze"
	UserLevelSilver   UserLevel = "silver"
	UserLevelGold     UserLevel = "gold"
	UserLevelPlatinum UserLevel = "platinum"
)

type levelStep struct {
	Level     UserLevel
	Name      string
	Threshold int
}

var levels = []levelStep{
	{Level: UserLevelBronze, Name: "Bronze", Threshold: 0},
	{Level: UserLevelSilver, Name: "Silver", Threshold: 100},
	{Level: UserLevelGold, Name: "Gold", Threshold: 250},
	{Level: UserLevelPlatinum, Name: "Platinum", Threshold: 500},
}

// LevelProgress описывает текущий уровень и прогресс до следующего.
type LevelProgress struct {
	Level     UserLevel `json:"level"`
	Name      string    `json:"name"`
	Next      UserLevel `json:"next,omitempty"`
	AdsToNext int       `json:"ads_to_next"`
	Percent   int       `json:"percent"`
}

// LevelForAdsWatched возвращает уровень для количества просмотров. На последнем уровне прогресс равен 100%.
func LevelForAdsWatched(adsWatched int) LevelProgress {
	if adsWatched < 0 {
		adsWatched = 0
	}
	idx := 0
	for i, step := range levels {
		if adsWatched >= step.Threshold {
			idx = i
		}
	}
	current := levels[idx]
	progress := LevelProgress{Level: current.Level, Name: current.Name, Percent: 100}
	if idx == len(levels)-1 {
		return progress
	}
	next := levels[idx+1]
	span := next.Threshold - current.Threshold
	progress.Next = next.Level
	progress.AdsToNext = next.Threshold - adsWatched
	progress.Percent = (adsWatched - current.Threshold) * 100 / span
	return progress
}
