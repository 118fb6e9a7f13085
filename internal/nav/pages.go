package nav

import "github.com/diogo/medimate/internal/models"

const servicesPage = `# Services

MediMate answers general health questions in plain language.

## What you can ask

- **Symptoms**: what might cause a headache, a cough or trouble sleeping
- **Wellness**: stress management, exercise and a balanced diet
- **Prevention**: vaccines, screenings and healthy habits
- **When to seek care**: signs that mean you should see a professional

## What MediMate does not do

- Diagnose conditions or prescribe treatment
- Replace your doctor, pharmacist or emergency services

If you think you are having a medical emergency, call your local emergency number.
`

const privacyPage = `# Privacy

- Conversations live only in this window. Closing MediMate discards them.
- Nothing is written to disk unless you run **/export**.
- Your question is sent to the MediMate service to produce an answer.
- Your sign-in session is stored in ` + "`~/.medimate/session.json`" + ` with owner-only permissions.
- Diagnostic logs never contain the text of your questions.

`

// Page returns the markdown body of a static route.
// RouteHome has no page: it is the chat itself.
func Page(r Route) (string, bool) {
	switch r {
	case RouteServices:
		return servicesPage, true
	case RoutePrivacy:
		return privacyPage + "_" + models.PrivacyFooter + "_\n", true
	}
	return "", false
}
