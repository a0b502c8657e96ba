package trackerlist

import (
	"reflect"
	"testing"
)

func TestMapperMapParams(t *testing.T) {
	config := TrackerConfig{
		Params: []TrackerParam{
			{Name: "mc_eid", Vendor: "mailchimp"},
			{Name: "IGSHID", Vendor: "instagram"},
			{Name: " igshid "},
			{Name: ""},
		},
	}

	mapper := NewMapper()
	got := mapper.MapParams(config)

	want := []string{"mc_eid", "igshid"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MapParams() = %v, want %v", got, want)
	}
}

func TestMapperMapParamsEmptyConfig(t *testing.T) {
	mapper := NewMapper()
	if got := mapper.MapParams(TrackerConfig{}); len(got) != 0 {
		t.Errorf("MapParams() on empty config = %v, want none", got)
	}
}
