package domain

import "testing"

func TestLevelForAdsWatched(t *testing.T) {
	tests := []struct {
		name      string
		watched   int
		want      UserLevel
		next      UserLevel
		adsToNext int
		percent   int
	}{
		{name: "new user", watched: 0, want: UserLevelBronze, next: UserLevelSilver, adsToNext: 100, percent: 0},
		{name: "negative clamps", watched: -5, want: UserLevelBronze, next: UserLevelSilver, adsToNext: 100, percent: 0},
		{name: "silver boundary", watched: 100, want: UserLevelSilver, next: UserLevelGold, adsToNext: 150, percent: 0},
		{name: "gold midway", watched: 423, want: UserLevelGold, next: UserLevelPlatinum, adsToNext: 77, percent: 69},
		{name: "platinum is last", watched: 900, want: UserLevelPlatinum, adsToNext: 0, percent: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LevelForAdsWatched(tt.watched)
			if got.Level != tt.want || got.Next != tt.next || got.AdsToNext != tt.adsToNext || got.Percent != tt.percent {
				t.Fatalf("LevelForAdsWatched(%d) = %+v", tt.watched, got)
			}
		})
	}
}
