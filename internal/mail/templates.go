package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/foodshare/pickup-api/internal/model"
)

// layout wraps every message body in the FoodShare header and footer.
// html/template escapes user-supplied values (names, pickup titles).
const layout = `{{define "layout"}}<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
  .container { max-width: 600px; margin: 0 auto; padding: 20px; }
  .header { background-color: #4CAF50; color: white; padding: 20px; text-align: center; }
  .content { padding: 20px; background-color: #f9f9f9; }
  .footer { text-align: center; font-size: 12px; color: #777; padding: 20px; }
  .button { display: inline-block; background-color: #4CAF50; color: white; padding: 10px 20px; text-decoration: none; border-radius: 4px; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>FoodShare</h1>
    <p>Connecting food with those who need it most</p>
  </div>
  <div class="content">{{template "content" .}}</div>
  <div class="footer">
    <p>&copy; {{.Year}} FoodShare. All rights reserved.</p>
    <p>This email was sent to you because you registered on our platform.</p>
  </div>
</div>
</body>
</html>{{end}}`

var contents = map[string]string{
	"verification": `{{define "content"}}
<h2>Welcome to FoodShare!</h2>
<p>Hi {{.Name}}, thank you for registering. Please verify your email address to complete your registration.</p>
<p><a href="{{.Link}}" class="button">Verify Email Address</a></p>
<p>Or copy and paste this link in your browser: {{.Link}}</p>
{{end}}`,

	"reset": `{{define "content"}}
<h2>Reset Your Password</h2>
<p>You requested a password reset. Click the button below to create a new password:</p>
<p><a href="{{.Link}}" class="button">Reset Password</a></p>
<p>Or copy and paste this link in your browser: {{.Link}}</p>
<p>This link will expire in 1 hour. If you didn't request this, please ignore this email.</p>
{{end}}`,

	"pickup-confirmation": `{{define "content"}}
<h2>Pickup Confirmation</h2>
<p>You have successfully accepted a food pickup:</p>
<p><strong>Food:</strong> {{.Pickup.Title}}</p>
<p><strong>Pickup Window:</strong> {{.Window}}</p>
<p><strong>Pickup Address:</strong> {{.Address}}</p>
<p><strong>Delivery Location:</strong> {{.Pickup.Destination}}</p>
<p><a href="{{.Link}}" class="button">View on Dashboard</a></p>
<p>Thank you for helping reduce food waste and hunger in our community!</p>
{{end}}`,

	"volunteer-assigned": `{{define "content"}}
<h2>Volunteer Assigned to Your Food Listing</h2>
<p>A volunteer has been assigned to pick up your food donation:</p>
<p><strong>Food:</strong> {{.Pickup.Title}}</p>
<p><strong>Volunteer:</strong> {{.Name}}</p>
<p><strong>Pickup Window:</strong> {{.Window}}</p>
<p><a href="{{.Link}}" class="button">View on Dashboard</a></p>
<p>Thank you for partnering with FoodShare to reduce food waste!</p>
{{end}}`,
}

// templates holds one parsed layout per content block, keyed like contents.
var templates = func() map[string]*template.Template {
	out := make(map[string]*template.Template, len(contents))
	for name, body := range contents {
		t := template.Must(template.New(name).Parse(layout))
		out[name] = template.Must(t.Parse(body))
	}
	return out
}()

// Composer renders the FoodShare emails. Links point at BaseURL.
type Composer struct {
	baseURL string
	now     func() time.Time
}

func NewComposer(baseURL string) *Composer {
	return &Composer{baseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
}

type templateData struct {
	Year    int
	Name    string
	Link    string
	Window  string
	Address string
	Pickup  *model.Pickup
}

func (c *Composer) render(name string, data templateData) (string, error) {
	data.Year = c.now().Year()
	var buf bytes.Buffer
	if err := templates[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("mail: rendering %s: %w", name, err)
	}
	return buf.String(), nil
}

func (c *Composer) link(path, token string) string {
	if token == "" {
		return c.baseURL + path
	}
	return c.baseURL + path + "?token=" + url.QueryEscape(token)
}

// Verification is sent after registration.
func (c *Composer) Verification(u *model.User, token string) (Message, error) {
	link := c.link("/verify-email", token)
	html, err := c.render("verification", templateData{Name: u.FirstName, Link: link})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      u.Email,
		Subject: "Verify Your Email Address",
		Text: fmt.Sprintf("Hi %s,\n\nThank you for registering with FoodShare. "+
			"Verify your email address by opening this link:\n\n%s\n", u.FirstName, link),
		HTML: html,
	}, nil
}

// PasswordReset carries a link that is valid for one hour.
func (c *Composer) PasswordReset(u *model.User, token string) (Message, error) {
	link := c.link("/reset-password", token)
	html, err := c.render("reset", templateData{Name: u.FirstName, Link: link})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      u.Email,
		Subject: "Reset Your Password",
		Text: fmt.Sprintf("You requested a password reset. Open this link to choose a new password:\n\n%s\n\n"+
			"This link will expire in 1 hour. If you didn't request this, please ignore this email.\n", link),
		HTML: html,
	}, nil
}

// PickupConfirmation goes to the volunteer who just claimed p.
func (c *Composer) PickupConfirmation(volunteer *model.User, p *model.Pickup) (Message, error) {
	data := templateData{
		Name:    volunteer.FullName(),
		Link:    c.link("/volunteer-dashboard", ""),
		Window:  pickupWindow(p),
		Address: pickupAddress(p),
		Pickup:  p,
	}
	html, err := c.render("pickup-confirmation", data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      volunteer.Email,
		Subject: "Pickup Confirmation",
		Text: fmt.Sprintf("You have successfully accepted a food pickup.\n\nFood: %s\nPickup window: %s\n"+
			"Pickup address: %s\nDelivery location: %s\n", p.Title, data.Window, data.Address, p.Destination),
		HTML: html,
	}, nil
}

// VolunteerAssigned tells the organization's account who is collecting p.
func (c *Composer) VolunteerAssigned(orgUser, volunteer *model.User, p *model.Pickup) (Message, error) {
	data := templateData{
		Name:   volunteer.FullName(),
		Link:   c.link("/ngo-dashboard", ""),
		Window: pickupWindow(p),
		Pickup: p,
	}
	html, err := c.render("volunteer-assigned", data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      orgUser.Email,
		Subject: "Volunteer Assigned to Your Food Donation",
		Text: fmt.Sprintf("A volunteer has been assigned to pick up your food donation.\n\nFood: %s\n"+
			"Volunteer: %s\nPickup window: %s\n", p.Title, data.Name, data.Window),
		HTML: html,
	}, nil
}

func pickupWindow(p *model.Pickup) string {
	const dayAndTime = "Mon Jan 2 2006, 15:04"
	return p.PickupTime.UTC().Format(dayAndTime) + " - " + p.PickupEndTime.UTC().Format("15:04") + " UTC"
}

func pickupAddress(p *model.Pickup) string {
	return fmt.Sprintf("%s, %s, %s %s", p.Address, p.City, p.State, p.ZipCode)
}
