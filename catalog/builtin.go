package catalog

import (
	"net/http"

	"github.com/teranos/hirepanel/action"
	"github.com/teranos/hirepanel/columns"
	"github.com/teranos/hirepanel/query"
	"github.com/teranos/hirepanel/session"
	"github.com/teranos/hirepanel/view"
)

var (
	approveRecruiter = func(prefix string) action.Transition {
		return action.Transition{
			Name: "approve", Status: "approved", Method: http.MethodPut,
			Path: prefix + "/recruiters/{id}/status", Success: "Recruiter approved",
		}
	}
	declineRecruiter = func(prefix string) action.Transition {
		return action.Transition{
			Name: "decline", Status: "declined", Method: http.MethodPut,
			Path: prefix + "/recruiters/{id}/status", Success: "Recruiter declined",
		}
	}
	resolveInquiry = func(prefix string) action.Transition {
		return action.Transition{
			Name: "resolve", Status: "resolved", Method: http.MethodPut,
			Path: prefix + "/inquiries/{id}/status", Success: "Inquiry marked as resolved",
		}
	}
)

var (
	candidateColumns = []columns.Column{
		{Field: "full_name", Header: "Name", Format: columns.Text},
		{Field: "email", Header: "Email", Format: columns.Text},
		{Field: "phone", Header: "Phone", Format: columns.Text},
		{Field: "location", Header: "Location", Format: columns.Text},
		{Field: "skills", Header: "Skills", Format: columns.List},
		{Field: "status", Header: "Status", Format: columns.Status},
		{Field: "created_at", Header: "Joined", Format: columns.Date},
		{Field: "candidate_profile", Header: "Profile", Format: columns.Profile},
	}
	recruiterColumns = []columns.Column{
		{Field: "full_name", Header: "Name", Format: columns.Text},
		{Field: "contact_email", Header: "Email", Format: columns.Text},
		{Field: "company", Header: "Company", Format: columns.Object},
		{Field: "status", Header: "Status", Format: columns.Status},
		{Field: "created_at", Header: "Registered", Format: columns.Date},
	}
	offerColumns = []columns.Column{
		{Field: "title", Header: "Title", Format: columns.Text},
		{Field: "recruiter", Header: "Recruiter", Format: columns.Object},
		{Field: "location", Header: "Location", Format: columns.Text},
		{Field: "salary_min", Header: "Salary From", Format: columns.Currency("")},
		{Field: "salary_max", Header: "Salary To", Format: columns.Currency("")},
		{Field: "status", Header: "Status", Format: columns.Status},
		{Field: "created_at", Header: "Posted", Format: columns.Date},
	}
	inquiryColumns = []columns.Column{
		{Field: "name", Header: "Name", Format: columns.Text},
		{Field: "email", Header: "Email", Format: columns.Text},
		{Field: "subject", Header: "Subject", Format: columns.Text},
		{Field: "message", Header: "Message", Format: columns.Text},
		{Field: "status", Header: "Status", Format: columns.Status},
		{Field: "created_at", Header: "Received", Format: columns.Date},
	}
	applicationColumns = []columns.Column{
		{Field: "candidate", Header: "Candidate", Format: columns.Object},
		{Field: "offer.title", Header: "Offer", Format: columns.Text},
		{Field: "status", Header: "Status", Format: columns.Status},
		{Field: "applied_at", Header: "Applied", Format: columns.Date},
		{Field: "candidate_profile", Header: "Profile", Format: columns.Profile},
	}
)

// Builtin returns the views compiled into hirepanel
func Builtin() []view.Definition {
	return []view.Definition{
		// superadmin
		view.Define("all-candidates").Title("All Candidates").
			Describe("Every registered candidate").
			Endpoint("superadmin/candidates").Route("/superadmin/candidates").
			Role(session.RoleSuperadmin).PerPage(25).
			Columns(candidateColumns...).
			StatusFilters("active", "inactive").
			DefaultSort("created_at", query.Desc).
			MustBuild(),
		view.Define("all-recruiters").Title("All Recruiters").
			Describe("Every recruiter account").
			Endpoint("superadmin/recruiters").Route("/superadmin/recruiters").
			Role(session.RoleSuperadmin).PerPage(25).
			Columns(recruiterColumns...).
			StatusFilters("pending", "approved", "declined").
			MustBuild(),
		view.Define("pending-recruiters").Title("Pending Recruiters").
			Describe("Recruiters waiting for approval").
			Endpoint("superadmin/recruiters/pending").Route("/superadmin/recruiters/pending").
			Role(session.RoleSuperadmin).PerPage(15).
			Columns(recruiterColumns...).
			Transition(approveRecruiter("superadmin")).
			Transition(declineRecruiter("superadmin")).
			MustBuild(),
		view.Define("all-offers").Title("All Job Offers").
			Describe("Job offers across all recruiters").
			Endpoint("superadmin/offers").Route("/superadmin/offers").
			Role(session.RoleSuperadmin).PerPage(25).
			Columns(offerColumns...).
			StatusFilters("open", "closed", "withdrawn").
			DefaultSort("created_at", query.Desc).
			MustBuild(),
		view.Define("withdrawn-offers").Title("Withdrawn Offers").
			Describe("Offers withdrawn by their recruiter, with the reason given").
			Endpoint("superadmin/offers/withdrawn").Route("/superadmin/offers/withdrawn").
			Role(session.RoleSuperadmin).PerPage(15).
			Columns(
				columns.Column{Field: "title", Header: "Title", Format: columns.Text},
				columns.Column{Field: "recruiter", Header: "Recruiter", Format: columns.Object},
				columns.Column{Field: "withdrawal_reason", Header: "Reason", Format: columns.Text},
				columns.Column{Field: "withdrawn_at", Header: "Withdrawn", Format: columns.Date},
			).
			MustBuild(),
		view.Define("inquiries").Title("Contact Inquiries").
			Describe("Messages sent through the contact form").
			Endpoint("superadmin/inquiries").Route("/superadmin/inquiries").
			Role(session.RoleSuperadmin).PerPage(15).
			Columns(inquiryColumns...).
			StatusFilters("open", "resolved").
			Transition(resolveInquiry("superadmin")).
			MustBuild(),

		// internal team
		view.Define("candidates").Title("Candidates").
			Endpoint("internal-team/candidates").Route("/internal-team/candidates").
			Role(session.RoleStaff).PerPage(25).
			Columns(candidateColumns...).
			StatusFilters("active", "inactive").
			MustBuild(),
		view.Define("recruiters").Title("Recruiters").
			Endpoint("internal-team/recruiters").Route("/internal-team/recruiters").
			Role(session.RoleStaff).PerPage(25).
			Columns(recruiterColumns...).
			MustBuild(),
		view.Define("pending-recruiters").Title("Pending Recruiters").
			Describe("Recruiters waiting for approval").
			Endpoint("internal-team/recruiters/pending").Route("/internal-team/recruiters/pending").
			Role(session.RoleStaff).PerPage(15).
			Columns(recruiterColumns...).
			Transition(approveRecruiter("internal-team")).
			Transition(declineRecruiter("internal-team")).
			MustBuild(),
		view.Define("inquiries").Title("Contact Inquiries").
			Endpoint("internal-team/inquiries").Route("/internal-team/inquiries").
			Role(session.RoleStaff).PerPage(15).
			Columns(inquiryColumns...).
			Transition(resolveInquiry("internal-team")).
			MustBuild(),

		// recruiter
		view.Define("my-offers").Title("My Job Offers").
			Endpoint("recruiter/offers").Route("/recruiter/offers").
			Role(session.RoleRecruiter).PerPage(10).
			Columns(offerColumns...).
			StatusFilters("open", "closed", "withdrawn").
			Transition(action.Transition{
				Name: "withdraw", Status: "withdrawn", Method: http.MethodPut,
				Path: "recruiter/offers/{id}/status", Success: "Offer withdrawn",
			}).
			Transition(action.Transition{
				Name: "close", Status: "closed", Method: http.MethodPut,
				Path: "recruiter/offers/{id}/status", Success: "Offer closed",
			}).
			MustBuild(),
		view.Define("applicants").Title("Applicants").
			Describe("Applications to your offers").
			Endpoint("recruiter/applications").Route("/recruiter/applications").
			Role(session.RoleRecruiter).PerPage(15).
			Columns(applicationColumns...).
			StatusFilters("submitted", "shortlisted", "rejected").
			Transition(action.Transition{
				Name: "shortlist", Status: "shortlisted", Method: http.MethodPut,
				Path: "recruiter/applications/{id}/status",
			}).
			Transition(action.Transition{
				Name: "reject", Status: "rejected", Method: http.MethodPut,
				Path: "recruiter/applications/{id}/status",
			}).
			MustBuild(),

		// candidate
		view.Define("my-applications").Title("My Applications").
			Endpoint("candidate/applications").Route("/candidate/applications").
			Role(session.RoleCandidate).PerPage(10).
			Columns(
				columns.Column{Field: "offer.title", Header: "Offer", Format: columns.Text},
				columns.Column{Field: "offer.company_name", Header: "Company", Format: columns.Text},
				columns.Column{Field: "status", Header: "Status", Format: columns.Status},
				columns.Column{Field: "applied_at", Header: "Applied", Format: columns.Date},
			).
			Transition(action.Transition{
				Name: "withdraw", Status: "withdrawn", Method: http.MethodPut,
				Path: "candidate/applications/{id}/status", Success: "Application withdrawn",
			}).
			MustBuild(),
	}
}
