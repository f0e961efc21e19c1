// Package normalize maps free-text customer attribute values to canonical
// codes and back to the full set of raw spellings a tenant's rows might
// contain. Upstream data entry is wildly inconsistent ("남", "male", "1" all
// mean gender M), so filter predicates are built from the variant sets
// rather than the canonical code alone.
//
// All functions are pure; the variant maps are fixed at compile time.
package normalize

import (
	"sort"
	"strings"
)

// Canonical codes.
var (
	Genders = []string{"M", "F"}
	Grades  = []string{"VVIP", "VIP", "GOLD", "SILVER", "BRONZE", "NORMAL"}
	Regions = []string{
		"서울", "부산", "대구", "인천", "광주", "대전", "울산", "세종",
		"경기", "강원", "충북", "충남", "전북", "전남", "경북", "경남", "제주",
	}
)

var genderMap = map[string]string{
	"m": "M", "M": "M",
	"남": "M", "남자": "M", "남성": "M",
	"male": "M", "Male": "M", "MALE": "M",
	"1": "M", "man": "M", "Man": "M", "MAN": "M",
	"f": "F", "F": "F",
	"여": "F", "여자": "F", "여성": "F",
	"female": "F", "Female": "F", "FEMALE": "F",
	"2": "F", "woman": "F", "Woman": "F", "WOMAN": "F",
}

var gradeMap = map[string]string{
	"VVIP": "VVIP", "vvip": "VVIP", "Vvip": "VVIP",
	"VVIP고객": "VVIP", "VVIP회원": "VVIP", "VV": "VVIP",
	"VIP": "VIP", "vip": "VIP", "Vip": "VIP",
	"VIP고객": "VIP", "VIP회원": "VIP", "V": "VIP",
	"vip고객": "VIP", "VIP등급": "VIP",
	"GOLD": "GOLD", "gold": "GOLD", "Gold": "GOLD",
	"골드": "GOLD", "골드회원": "GOLD", "Gold회원": "GOLD",
	"G": "GOLD", "GOLD등급": "GOLD",
	"SILVER": "SILVER", "silver": "SILVER", "Silver": "SILVER",
	"실버": "SILVER", "실버회원": "SILVER", "Silver회원": "SILVER",
	"S": "SILVER", "SILVER등급": "SILVER",
	"BRONZE": "BRONZE", "bronze": "BRONZE", "Bronze": "BRONZE",
	"브론즈": "BRONZE", "브론즈회원": "BRONZE", "Bronze회원": "BRONZE",
	"B": "BRONZE", "BRONZE등급": "BRONZE",
	"NORMAL": "NORMAL", "normal": "NORMAL", "Normal": "NORMAL",
	"일반": "NORMAL", "일반회원": "NORMAL", "일반고객": "NORMAL",
	"REGULAR": "NORMAL", "regular": "NORMAL", "Regular": "NORMAL",
	"STANDARD": "NORMAL", "standard": "NORMAL",
	"기본": "NORMAL", "기본회원": "NORMAL", "N": "NORMAL",
}

var regionMap = map[string]string{
	"서울": "서울", "서울시": "서울", "서울특별시": "서울", "Seoul": "서울", "seoul": "서울", "SEOUL": "서울",
	"부산": "부산", "부산시": "부산", "부산광역시": "부산", "Busan": "부산", "busan": "부산", "BUSAN": "부산",
	"대구": "대구", "대구시": "대구", "대구광역시": "대구", "Daegu": "대구", "daegu": "대구", "DAEGU": "대구",
	"인천": "인천", "인천시": "인천", "인천광역시": "인천", "Incheon": "인천", "incheon": "인천", "INCHEON": "인천",
	"광주": "광주", "광주시": "광주", "광주광역시": "광주", "Gwangju": "광주", "gwangju": "광주", "GWANGJU": "광주",
	"대전": "대전", "대전시": "대전", "대전광역시": "대전", "Daejeon": "대전", "daejeon": "대전", "DAEJEON": "대전",
	"울산": "울산", "울산시": "울산", "울산광역시": "울산", "Ulsan": "울산", "ulsan": "울산", "ULSAN": "울산",
	"세종": "세종", "세종시": "세종", "세종특별자치시": "세종", "Sejong": "세종", "sejong": "세종", "SEJONG": "세종",
	"경기": "경기", "경기도": "경기", "Gyeonggi": "경기", "gyeonggi": "경기", "GYEONGGI": "경기",
	"강원": "강원", "강원도": "강원", "강원특별자치도": "강원", "Gangwon": "강원", "gangwon": "강원", "GANGWON": "강원",
	"충북": "충북", "충청북도": "충북", "충북도": "충북", "Chungbuk": "충북", "chungbuk": "충북", "CHUNGBUK": "충북",
	"충남": "충남", "충청남도": "충남", "충남도": "충남", "Chungnam": "충남", "chungnam": "충남", "CHUNGNAM": "충남",
	"전북": "전북", "전라북도": "전북", "전북도": "전북", "전북특별자치도": "전북", "Jeonbuk": "전북", "jeonbuk": "전북", "JEONBUK": "전북",
	"전남": "전남", "전라남도": "전남", "전남도": "전남", "Jeonnam": "전남", "jeonnam": "전남", "JEONNAM": "전남",
	"경북": "경북", "경상북도": "경북", "경북도": "경북", "Gyeongbuk": "경북", "gyeongbuk": "경북", "GYEONGBUK": "경북",
	"경남": "경남", "경상남도": "경남", "경남도": "경남", "Gyeongnam": "경남", "gyeongnam": "경남", "GYEONGNAM": "경남",
	"제주": "제주", "제주도": "제주", "제주시": "제주", "제주특별자치도": "제주", "Jeju": "제주", "jeju": "제주", "JEJU": "제주",
}

// Gender maps a raw value to its canonical code, or "" if unrecognized.
func Gender(raw string) string {
	return genderMap[strings.TrimSpace(raw)]
}

// Grade maps a raw value to its canonical code. Unknown grades are returned
// uppercased so tenant-specific tiers still round-trip.
func Grade(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return ""
	}
	if canonical, ok := gradeMap[v]; ok {
		return canonical
	}
	return strings.ToUpper(v)
}

// Region maps a raw value to its canonical province/city name. Unknown
// values (overseas addresses etc.) are returned unchanged.
func Region(raw string) string {
	v := strings.TrimSpace(raw)
	if canonical, ok := regionMap[v]; ok {
		return canonical
	}
	return v
}

// GenderVariants returns every raw spelling that normalizes to the same
// gender as the given value. The value may be the canonical code or any
// known raw spelling ("남" expands the same set as "M"). Unrecognized
// values fall back to an exact-match singleton so novel values still
// filter correctly.
func GenderVariants(value string) []string {
	canonical := Gender(value)
	if canonical == "" {
		return []string{value}
	}
	return variantsOf(genderMap, canonical)
}

// GradeVariants returns every raw spelling that normalizes to the same
// grade as the given value, canonical or raw.
func GradeVariants(value string) []string {
	out := variantsOf(gradeMap, Grade(value))
	// Tenant-specific tiers uppercase on canonicalization; keep the
	// caller's exact spelling matchable too.
	for _, v := range out {
		if v == value {
			return out
		}
	}
	out = append(out, value)
	sort.Strings(out)
	return out
}

// RegionVariants returns every raw spelling that normalizes to the same
// region as the given value, canonical or raw.
func RegionVariants(value string) []string {
	return variantsOf(regionMap, Region(value))
}

func variantsOf(m map[string]string, canonical string) []string {
	var out []string
	for raw, c := range m {
		if c == canonical {
			out = append(out, raw)
		}
	}
	if len(out) == 0 {
		return []string{canonical}
	}
	sort.Strings(out)
	return out
}

var optInTrue = map[string]bool{
	"true": true, "Y": true, "y": true, "yes": true, "YES": true, "Yes": true,
	"동의": true, "수신동의": true, "1": true, "O": true, "o": true, "T": true, "t": true,
}

var optInFalse = map[string]bool{
	"false": true, "N": true, "n": true, "no": true, "NO": true, "No": true,
	"거부": true, "수신거부": true, "0": true, "X": true, "x": true, "F": true, "f": true,
}

// OptIn parses a raw consent value. The second return is false when the
// value is not recognizable as either consent state.
func OptIn(raw string) (value, ok bool) {
	v := strings.TrimSpace(raw)
	if optInTrue[v] {
		return true, true
	}
	if optInFalse[v] {
		return false, true
	}
	return false, false
}
