package tools

// DefaultPrepInstructions is returned for procedure types without a
// dedicated checklist.
const DefaultPrepInstructions = "No specific preparation instructions found. Please contact the clinic for details."

var prepInstructions = map[string]string{
	"MRI Scan": "1. Remove all metal objects (jewelry, piercings, hearing aids).\n" +
		"2. Avoid eating 4 hours before the scan.\n" +
		"3. Wear comfortable, loose-fitting clothing with no metal.\n" +
		"4. Inform staff of any implants, pacemakers, or claustrophobia.\n" +
		"5. Arrive 15 minutes early to complete paperwork.",
	"Blood Test": "1. Fast for at least 8-12 hours before the test (water is allowed).\n" +
		"2. Avoid strenuous exercise the night before.\n" +
		"3. Take prescribed medications as normal unless told otherwise.\n" +
		"4. Bring your insurance card, photo ID, and referral letter.\n" +
		"5. Stay hydrated: drink plenty of water before your visit.",
	"X-Ray": "1. No special preparation is needed in most cases.\n" +
		"2. Remove metal objects, jewelry, and clothing with zippers.\n" +
		"3. Inform staff immediately if you are or may be pregnant.\n" +
		"4. Wear comfortable, easy-to-remove clothing.\n" +
		"5. Bring any previous imaging results if available.",
	"ECG": "1. Avoid applying lotions or oils to your chest area on the day.\n" +
		"2. Wear a two-piece outfit for easy access to the chest.\n" +
		"3. Avoid caffeine and cigarettes for at least 3 hours before.\n" +
		"4. Continue all prescribed medications unless told otherwise.\n" +
		"5. Arrive 10 minutes early to rest before the procedure.",
	"Consultation": "1. Bring a list of all current medications and dosages.\n" +
		"2. Prepare a summary of your symptoms and when they started.\n" +
		"3. Bring previous test results, scans, or medical records.\n" +
		"4. Write down any questions you want to ask the doctor.\n" +
		"5. Bring your insurance card and a valid photo ID.",
}

// PrepFor returns the checklist for a procedure type, or the default text.
func PrepFor(procedure string) string {
	if s, ok := prepInstructions[procedure]; ok {
		return s
	}
	return DefaultPrepInstructions
}
