package notify

import "github.com/careerbox/presenced/pkg/protocol"

// Product-policy constructors. These fix the category/kind/actionRef
// conventions for the notification types the platform sends most;
// callers remain free to build a Notification by hand.

func ApplicationSubmitted(jobTitle, applicationID string) protocol.Notification {
	return protocol.Notification{
		Kind:      protocol.KindSuccess,
		Category:  protocol.CategoryApplication,
		Title:     "Application submitted",
		Body:      "Your application for " + jobTitle + " has been submitted.",
		ActionRef: "/applications/" + applicationID,
	}
}

func EnrollmentConfirmed(courseTitle, enrollmentID string) protocol.Notification {
	return protocol.Notification{
		Kind:      protocol.KindSuccess,
		Category:  protocol.CategoryApplication,
		Title:     "Enrollment confirmed",
		Body:      "You are enrolled in " + courseTitle + ".",
		ActionRef: "/enrollments/" + enrollmentID,
	}
}

func PaymentSucceeded(amount, reference string) protocol.Notification {
	return protocol.Notification{
		Kind:      protocol.KindSuccess,
		Category:  protocol.CategorySystem,
		Title:     "Payment received",
		Body:      "Your payment of " + amount + " was processed.",
		ActionRef: "/payments/" + reference,
	}
}

func PaymentFailed(amount, reference string) protocol.Notification {
	return protocol.Notification{
		Kind:      protocol.KindError,
		Category:  protocol.CategorySystem,
		Title:     "Payment failed",
		Body:      "Your payment of " + amount + " could not be processed.",
		ActionRef: "/payments/" + reference,
	}
}

func ConnectionRequestReceived(fromName, fromID string) protocol.Notification {
	return protocol.Notification{
		Kind:      protocol.KindInfo,
		Category:  protocol.CategorySocial,
		Title:     "New connection request",
		Body:      fromName + " wants to connect with you.",
		ActionRef: "/network/requests/" + fromID,
	}
}
