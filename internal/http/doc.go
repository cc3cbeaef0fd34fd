// Package httpapp provides the HTTP server for Inkwell.
//
// Every view answers JSON. Form posts from a browser get a 302 redirect;
// send Accept: application/json to get the created or changed resource
// instead.
//
//	@title						Inkwell API
//	@version					1.0
//	@description				A small publishing platform: accounts, posts with images, comments and likes.
//	@description
//	@description				## Sessions
//	@description				POST /login sets a `token` cookie holding a signed JWT. Requests without a
//	@description				valid cookie are anonymous; reads still work, writes answer 401.
//	@description				```bash
//	@description				curl -c jar -d userid=alice -d pw=secret http://localhost:8080/login
//	@description				curl -b jar -H 'Accept: application/json' -X POST http://localhost:8080/posts/1/like
//	@description				```
//
//	@contact.name				Inkwell
//	@license.name				MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@securityDefinitions.apikey	CookieAuth
//	@in							cookie
//	@name						token
//	@description				Session token set by POST /login
//
//	@tag.name					Feed
//	@tag.description			Landing view and paged feed.
//
//	@tag.name					Accounts
//	@tag.description			Sign up, sign in and the current user.
//
//	@tag.name					Posts
//	@tag.description			Publish, read, edit and delete posts.
//
//	@tag.name					Comments
//	@tag.description			Append-only comments on posts.
//
//	@tag.name					Likes
//	@tag.description			One like per user per post, toggled.
package httpapp
