package points

import (
	"reflect"
	"testing"
)

func TestSplitEvenly(t *testing.T) {
	tests := []struct {
		name  string
		cost  int
		users []UserBalance
		want  []Contribution
	}{
		{
			name: "remainder goes to first users",
			cost: 100,
			users: []UserBalance{
				{UserID: 1, Balance: 40},
				{UserID: 2, Balance: 40},
				{UserID: 3, Balance: 40},
			},
			want: []Contribution{
				{UserID: 1, Points: 34},
				{UserID: 2, Points: 33},
				{UserID: 3, Points: 33},
			},
		},
		{
			name: "even split",
			cost: 90,
			users: []UserBalance{
				{UserID: 1, Balance: 50},
				{UserID: 2, Balance: 50},
				{UserID: 3, Balance: 50},
			},
			want: []Contribution{
				{UserID: 1, Points: 30},
				{UserID: 2, Points: 30},
				{UserID: 3, Points: 30},
			},
		},
		{
			name: "zero balances excluded",
			cost: 50,
			users: []UserBalance{
				{UserID: 1, Balance: 0},
				{UserID: 2, Balance: 60},
				{UserID: 3, Balance: 60},
			},
			want: []Contribution{
				{UserID: 2, Points: 25},
				{UserID: 3, Points: 25},
			},
		},
		{
			name: "poor member capped, others absorb",
			cost: 100,
			users: []UserBalance{
				{UserID: 1, Balance: 10},
				{UserID: 2, Balance: 80},
				{UserID: 3, Balance: 80},
			},
			want: []Contribution{
				{UserID: 1, Points: 10},
				{UserID: 2, Points: 45},
				{UserID: 3, Points: 45},
			},
		},
		{
			name: "combined balance short of cost",
			cost: 100,
			users: []UserBalance{
				{UserID: 1, Balance: 20},
				{UserID: 2, Balance: 30},
			},
			want: []Contribution{
				{UserID: 1, Points: 20},
				{UserID: 2, Points: 30},
			},
		},
		{
			name:  "no eligible users",
			cost:  100,
			users: []UserBalance{{UserID: 1, Balance: 0}},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitEvenly(tt.cost, tt.users)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitEvenly(%d) = %v, want %v", tt.cost, got, tt.want)
			}
		})
	}
}

func TestMaxFromEach(t *testing.T) {
	tests := []struct {
		name  string
		cost  int
		users []UserBalance
		want  []Contribution
	}{
		{
			name: "richest drained first",
			cost: 100,
			users: []UserBalance{
				{UserID: 1, Balance: 30},
				{UserID: 2, Balance: 90},
				{UserID: 3, Balance: 50},
			},
			want: []Contribution{
				{UserID: 2, Points: 90},
				{UserID: 3, Points: 10},
			},
		},
		{
			name: "single balance covers everything",
			cost: 40,
			users: []UserBalance{
				{UserID: 1, Balance: 100},
				{UserID: 2, Balance: 5},
			},
			want: []Contribution{
				{UserID: 1, Points: 40},
			},
		},
		{
			name: "ties keep input order",
			cost: 60,
			users: []UserBalance{
				{UserID: 1, Balance: 40},
				{UserID: 2, Balance: 40},
			},
			want: []Contribution{
				{UserID: 1, Points: 40},
				{UserID: 2, Points: 20},
			},
		},
		{
			name: "short plan when everyone is drained",
			cost: 100,
			users: []UserBalance{
				{UserID: 1, Balance: 30},
				{UserID: 2, Balance: 20},
			},
			want: []Contribution{
				{UserID: 1, Points: 30},
				{UserID: 2, Points: 20},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaxFromEach(tt.cost, tt.users)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MaxFromEach(%d) = %v, want %v", tt.cost, got, tt.want)
			}
		})
	}
}
