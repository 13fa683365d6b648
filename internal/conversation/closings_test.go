package conversation

import "testing"

func TestDefaultClosingClassifier(t *testing.T) {
	closings := []string{
		"Thanks!",
		"thanks so much!",
		"Thank you again.",
		"Appreciated!",
		"You're welcome",
		"Glad to help!",
		"Sounds good",
		"got it",
		"Likewise!",
		"Cheers",
		"No problem!",
		"My pleasure",
		"Awesome!",
		"🙏",
		"!!",
	}
	for _, s := range closings {
		if !DefaultClosingClassifier(s) {
			t.Errorf("%q should classify as a closing", s)
		}
	}

	substantive := []string{
		"",
		"Thanks, but what about the failover case you mentioned earlier in the thread?",
		"Great point about the consensus protocol, here is my counterexample",
		"The deploy failed again",
		"got it working after I bumped the timeout to thirty seconds on the client",
	}
	for _, s := range substantive {
		if DefaultClosingClassifier(s) {
			t.Errorf("%q should not classify as a closing", s)
		}
	}
}
