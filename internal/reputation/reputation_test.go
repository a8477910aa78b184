package reputation

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestHIndexLabel(t *testing.T) {
	tests := []struct {
		h    int
		want string
	}{
		{0, "author h-index: 0, Emerging Researcher"},
		{3, "author h-index: 3, Emerging Researcher"},
		{5, "author h-index: 5, Emerging Researcher"},
		{6, "author h-index: 6, Early Career Researcher"},
		{15, "author h-index: 15, Early Career Researcher"},
		{16, "author h-index: 16, Established Researcher"},
		{30, "author h-index: 30, Established Researcher"},
		{31, "author h-index: 31, Influential Researcher"},
		{45, "author h-index: 45, Influential Researcher"},
		{46, "author h-index: 46, Leading Expert"},
		{130, "author h-index: 130, Leading Expert"},
	}
	for _, tt := range tests {
		got, err := HIndexLabel(tt.h)
		if err != nil {
			t.Errorf("HIndexLabel(%d) unexpected error: %v", tt.h, err)
			continue
		}
		if got != tt.want {
			t.Errorf("HIndexLabel(%d) = %q, want %q", tt.h, got, tt.want)
		}
	}
}

func TestHIndexLabel_Ranges(t *testing.T) {
	for h := 0; h <= 5; h++ {
		got, _ := HIndexLabel(h)
		if !strings.Contains(got, "Emerging Researcher") {
			t.Errorf("h=%d: expected Emerging Researcher, got %q", h, got)
		}
	}
	for h := 46; h < 500; h += 7 {
		got, _ := HIndexLabel(h)
		if !strings.Contains(got, "Leading Expert") {
			t.Errorf("h=%d: expected Leading Expert, got %q", h, got)
		}
	}
}

func TestNegativeMetrics(t *testing.T) {
	for _, h := range []int{-1, -100} {
		if _, err := HIndexLabel(h); !errors.Is(err, ErrInvalidMetric) {
			t.Errorf("HIndexLabel(%d): expected ErrInvalidMetric, got %v", h, err)
		}
	}
	for _, v := range []float64{-0.1, -1, -64, math.NaN()} {
		if _, err := AverageCitationLabel(v); !errors.Is(err, ErrInvalidMetric) {
			t.Errorf("AverageCitationLabel(%v): expected ErrInvalidMetric, got %v", v, err)
		}
		if _, err := InstitutionTier(v); !errors.Is(err, ErrInvalidMetric) {
			t.Errorf("InstitutionTier(%v): expected ErrInvalidMetric, got %v", v, err)
		}
	}
}

func TestAverageCitationLabel(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{0, "institution average citation: 0.0, Developing Institution"},
		{5.4, "institution average citation: 5.0, Developing Institution"},
		// half to even: 5.5 rounds to 6, 2.5 rounds to 2
		{5.5, "institution average citation: 6.0, Emerging Institution"},
		{2.5, "institution average citation: 2.0, Developing Institution"},
		{15.4, "institution average citation: 15.0, Emerging Institution"},
		{25, "institution average citation: 25.0, Established Institution"},
		{45.2, "institution average citation: 45.0, Reputable Institution"},
		{64, "institution average citation: 64.0, World-Class Institution"},
	}
	for _, tt := range tests {
		got, err := AverageCitationLabel(tt.v)
		if err != nil {
			t.Errorf("AverageCitationLabel(%v) unexpected error: %v", tt.v, err)
			continue
		}
		if got != tt.want {
			t.Errorf("AverageCitationLabel(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestAverageCitationLabel_PreRoundingInvariant(t *testing.T) {
	pairs := [][2]float64{{15.4, 15}, {44.6, 45}, {0.3, 0}, {30.49, 30}}
	for _, p := range pairs {
		a, _ := AverageCitationLabel(p[0])
		b, _ := AverageCitationLabel(p[1])
		if a != b {
			t.Errorf("labels differ for %v and %v: %q vs %q", p[0], p[1], a, b)
		}
	}
}

func TestInstitutionTier(t *testing.T) {
	got, err := InstitutionTier(64)
	if err != nil || got != "World-Class Institution" {
		t.Errorf("InstitutionTier(64) = %q, %v", got, err)
	}
}

func TestQuartileLabel(t *testing.T) {
	tests := map[string]string{
		"Q1":      "journal JCR: Q1, Top Level Journal",
		"Q2":      "journal JCR: Q2, High Level Journal",
		"Q3":      "journal JCR: Q3, Moderate Level Journal",
		"Q4":      "journal JCR: Q4, Low Level Journal",
		"q1":      "journal JCR: Q4, Low Level Journal",
		"":        "journal JCR: Q4, Low Level Journal",
		"garbage": "journal JCR: Q4, Low Level Journal",
	}
	for in, want := range tests {
		if got := QuartileLabel(in); got != want {
			t.Errorf("QuartileLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeInstitution(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "university segment wins",
			in:   "Barbara Davis Center for Diabetes, University of Colorado Anschutz Campus, Aurora, CO USA",
			want: "University of Colorado Anschutz Campus",
		},
		{
			name: "hospital segment",
			in:   "Dept. of Surgery, Massachusetts General Hospital, Boston",
			want: "Massachusetts General Hospital",
		},
		{
			name: "first matching segment wins over later university",
			in:   "Children's Hospital, Harvard University, Boston",
			want: "Children's Hospital",
		},
		{
			name: "case insensitive",
			in:   "Lab, UNIVERSITY OF TOKYO",
			want: "UNIVERSITY OF TOKYO",
		},
		{
			name: "fallback to second segment",
			in:   "Madras Diabetes Research Foundation & Dr Mohan's Diabetes Specialties Centre, Who Collaborating Centre, Chennai",
			want: "Who Collaborating Centre",
		},
		{
			name: "single segment",
			in:   "Max Planck Institute",
			want: "Max Planck Institute",
		},
		{
			name: "comma without space is not a delimiter",
			in:   "Institute A,Institute B",
			want: "Institute A,Institute B",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeInstitution(tt.in); got != tt.want {
				t.Errorf("NormalizeInstitution(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
