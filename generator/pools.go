package generator

import (
	"fmt"
	"strings"
	"time"
)

var firstNames = []string{
	"James", "Olivia", "William", "Charlotte", "Jack", "Amelia", "Noah",
	"Isla", "Thomas", "Mia", "Henry", "Grace", "Oliver", "Ava", "Leo",
	"Matilda", "Lucas", "Harper", "Ethan", "Ruby", "Mason", "Evie",
	"Samuel", "Sophie", "Daniel", "Chloe", "Joshua", "Ella", "Liam",
	"Zoe", "Alexander", "Hannah", "Benjamin", "Lily", "Patrick", "Ivy",
	"George", "Freya", "Archie", "Sienna",
}

var lastNames = []string{
	"Smith", "Jones", "Williams", "Brown", "Wilson", "Taylor", "Johnson",
	"White", "Martin", "Anderson", "Thompson", "Nguyen", "Walker",
	"Harris", "Lee", "Ryan", "Robinson", "Kelly", "King", "Davis",
	"Wright", "Evans", "Roberts", "Green", "Hall", "Wood", "Jackson",
	"Clarke", "Patel", "Khan", "Lewis", "James", "Phillips", "Mason",
	"Mitchell", "Rose", "Davies", "Rodgers", "Cox", "Alexander",
}

var streetNames = []string{
	"High", "Station", "Church", "Park", "Victoria", "George", "King",
	"Queen", "Elizabeth", "Main", "Bridge", "Mill", "Forest", "River",
	"Lake", "Hill", "Garden", "Orchard", "Chapel", "School", "Spring",
	"Sunset", "Meadow", "Windsor", "Albert", "Arthur", "Grange",
}

var streetSuffixes = []string{
	"Street", "Road", "Avenue", "Drive", "Court", "Place", "Lane",
	"Crescent", "Parade", "Terrace", "Way", "Close",
}

var cities = []string{
	"Sydney", "Melbourne", "Brisbane", "Perth", "Adelaide", "Hobart",
	"Darwin", "Canberra", "Newcastle", "Wollongong", "Geelong",
	"Townsville", "Cairns", "Toowoomba", "Ballarat", "Bendigo",
	"Launceston", "Mackay", "Rockhampton", "Bunbury", "Bundaberg",
	"Wagga Wagga", "Hervey Bay", "Mildura", "Shepparton", "Gladstone",
	"Tamworth", "Traralgon", "Orange", "Dubbo",
}

var states = []string{
	"New South Wales", "Victoria", "Queensland", "Western Australia",
	"South Australia", "Tasmania", "Australian Capital Territory",
	"Northern Territory",
}

var stateAbbrs = []string{"NSW", "VIC", "QLD", "WA", "SA", "TAS", "ACT", "NT"}

var countries = []string{
	"Australia", "New Zealand", "United Kingdom", "Ireland", "Canada",
	"United States", "Germany", "France", "Netherlands", "Singapore",
	"Japan", "South Africa", "Spain", "Italy", "Sweden", "Norway",
}

var emailDomains = []string{
	"example.com", "example.org", "example.net", "mailinator.com",
	"fastmail.test", "postbox.test", "inbox.test", "mailbox.test",
}

var companyWords = []string{
	"Apex", "Horizon", "Summit", "Pioneer", "Sterling", "Cascade",
	"Meridian", "Beacon", "Crestline", "Harbour", "Keystone", "Lakeside",
	"Northgate", "Oakfield", "Pinnacle", "Redwood", "Silverline",
	"Stonebridge", "Trueline", "Westfield", "Ironbark", "Bluegum",
}

var companySuffixes = []string{
	"Pty Ltd", "Holdings", "Group", "Logistics", "Services", "Transport",
	"Industries", "Solutions", "Enterprises", "Freight",
}

var vehicleMakes = []string{
	"Toyota", "Ford", "Holden", "Mazda", "Isuzu", "Hino", "Volvo",
	"Scania", "Mercedes-Benz", "Iveco", "Kenworth", "Mitsubishi",
}

var vehicleModels = []string{
	"HiLux", "Ranger", "Colorado", "BT-50", "D-Max", "300 Series",
	"FH16", "R500", "Actros", "Daily", "T610", "Canter", "Triton",
	"LandCruiser", "Transit", "Sprinter",
}

var depotLocations = []string{
	"Sydney Depot", "Melbourne Depot", "Brisbane Depot", "Perth Depot",
	"Adelaide Depot", "Newcastle Depot", "Geelong Depot", "Cairns Depot",
	"Townsville Depot", "Darwin Depot", "Hobart Depot", "Dubbo Depot",
}

// first letter of a NINO may not be D, F, I, Q, U or V; the second
// additionally may not be O. A handful of two-letter prefixes are
// administratively unallocated and rejected as a pair.
const (
	ninoFirst  = "ABCEGHJKLMNOPRSTWXYZ"
	ninoSecond = "ABCEGHJKLMNPRSTWXYZ"
	ninoSuffix = "ABCD"
)

var ninoInvalidPrefixes = map[string]bool{
	"BG": true, "GB": true, "KN": true, "NK": true, "NT": true, "TN": true, "ZZ": true,
}

// VIN alphabet excludes I, O and Q.
const vinAlphabet = "ABCDEFGHJKLMNPRSTUVWXYZ0123456789"

const upperAlpha = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

func genFirstName(r *rng, _ string) string { return r.pick(firstNames) }
func genLastName(r *rng, _ string) string  { return r.pick(lastNames) }

func genFullName(r *rng, _ string) string {
	// first and last come from separate draws of the stream, so they vary
	// independently for a single state
	return r.pick(firstNames) + " " + r.pick(lastNames)
}

func genEmail(r *rng, _ string) string {
	local := strings.ToLower(r.pick(firstNames)) + "." + strings.ToLower(r.pick(lastNames)) + r.digits(2)
	return local + "@" + r.pick(emailDomains)
}

func genPhoneAU(r *rng, _ string) string {
	areas := []string{"2", "3", "4", "7", "8"}
	return "0" + r.pick(areas) + r.digits(8)
}

func genPhoneUK(r *rng, _ string) string {
	return "07" + r.digits(9)
}

func genAddressLine1(r *rng, _ string) string {
	return fmt.Sprintf("%d %s %s", 1+r.intn(399), r.pick(streetNames), r.pick(streetSuffixes))
}

func genAddressLine2(r *rng, _ string) string {
	if r.intn(2) == 0 {
		return fmt.Sprintf("Unit %d", 1+r.intn(60))
	}
	return fmt.Sprintf("Level %d", 1+r.intn(20))
}

func genFullAddress(r *rng, original string) string {
	return fmt.Sprintf("%s, %s %s %s",
		genAddressLine1(r, original), r.pick(cities), r.pick(stateAbbrs), genPostCode(r, original))
}

func genCity(r *rng, _ string) string      { return r.pick(cities) }
func genState(r *rng, _ string) string     { return r.pick(states) }
func genStateAbbr(r *rng, _ string) string { return r.pick(stateAbbrs) }
func genCountry(r *rng, _ string) string   { return r.pick(countries) }

func genPostCode(r *rng, _ string) string {
	// 0800-7999 covers all AU ranges without inventing invalid 9xxx codes
	return fmt.Sprintf("%04d", 800+r.intn(7200))
}

func genZipCode(r *rng, _ string) string {
	return fmt.Sprintf("%05d", 501+r.intn(99000))
}

func genUKPostcode(r *rng, _ string) string {
	return fmt.Sprintf("%s%d %d%s",
		r.letters(1+r.intn(2), upperAlpha), 1+r.intn(30), r.intn(10), r.letters(2, "ABDEFGHJLNPQRSTUWXYZ"))
}

func genLicenseNumber(r *rng, _ string) string {
	return r.letters(2, upperAlpha) + r.digits(6)
}

func genCompanyName(r *rng, _ string) string {
	return r.pick(companyWords) + " " + r.pick(companySuffixes)
}

func genVehicleRegistration(r *rng, _ string) string {
	return r.letters(3, upperAlpha) + r.digits(3)
}

func genVINNumber(r *rng, _ string) string {
	return r.letters(17, vinAlphabet)
}

func genVehicleMakeModel(r *rng, _ string) string {
	return r.pick(vehicleMakes) + " " + r.pick(vehicleModels)
}

func genEngineNumber(r *rng, _ string) string {
	return r.letters(3, upperAlpha) + r.digits(7)
}

func genGPSCoordinate(r *rng, _ string) string {
	// within continental Australia
	lat := -39.0 + float64(r.intn(14_000_000))/1_000_000
	lon := 141.0 + float64(r.intn(12_000_000))/1_000_000
	return fmt.Sprintf("%.6f,%.6f", lat, lon)
}

func genRouteCode(r *rng, _ string) string {
	return fmt.Sprintf("R%s-%s", r.pick(stateAbbrs), r.digits(3))
}

func genDepotLocation(r *rng, _ string) string {
	return r.pick(depotLocations)
}

func genSortCode(r *rng, _ string) string {
	return r.digits(2) + "-" + r.digits(2) + "-" + r.digits(2)
}

func genNINO(r *rng, _ string) string {
	for {
		prefix := r.letters(1, ninoFirst) + r.letters(1, ninoSecond)
		if ninoInvalidPrefixes[prefix] {
			continue
		}
		return prefix + r.digits(6) + r.letters(1, ninoSuffix)
	}
}

// dateLayouts are tried in order against the original so the synthetic
// value can be rendered the same way the source stored it.
var dateLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"01/02/2006 15:04:05",
}

func renderDate(r *rng, original string, start time.Time, spanDays int) string {
	day := start.AddDate(0, 0, r.intn(spanDays))
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, strings.TrimSpace(original)); err == nil {
			return day.Format(layout)
		}
	}
	return day.Format("2006-01-02")
}

func genDate(r *rng, original string) string {
	return renderDate(r, original, time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), 3650)
}

func genDateOfBirth(r *rng, original string) string {
	return renderDate(r, original, time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC), 20075)
}
